// Package orders consumes domain events and runs the post-checkout side
// effects: commission settlement, invoice generation, stock decrements and
// customer/vendor notifications.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/internal/notifications"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/metrics"
	"github.com/townielabs/townie-backend/pkg/outbox"
	"github.com/townielabs/townie-backend/pkg/outbox/payloads"
)

const orderEventsConsumer = "order-events"

// Settlements finalizes the commission split for an order.
type Settlements interface {
	SettleOrder(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error)
}

// Invoices builds the tax invoice lines for an order.
type Invoices interface {
	BuildForOrder(ctx context.Context, orderID uuid.UUID) ([]models.InvoiceLine, error)
}

// Orders exposes the order operations the consumer reacts with.
type Orders interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ApplyStockDecrement(ctx context.Context, orderID uuid.UUID) error
}

// Shops resolves the owning user of a shop for vendor notifications.
type Shops interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
}

// Notifier records in-app notifications with optional SMS copies.
type Notifier interface {
	Push(ctx context.Context, input notifications.PushInput) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// ConsumerParams collects the consumer dependencies.
type ConsumerParams struct {
	Settlements  Settlements
	Invoices     Invoices
	Orders       Orders
	Shops        Shops
	Notifier     Notifier
	Subscription *pubsub.Subscriber
	Idempotency  idempotencyChecker
	Logger       *logger.Logger
	Metrics      *metrics.OrderMetrics
}

// Consumer reacts to order and shop lifecycle events.
type Consumer struct {
	settlements  Settlements
	invoices     Invoices
	orders       Orders
	shops        Shops
	notifier     Notifier
	subscription *pubsub.Subscriber
	idempotency  idempotencyChecker
	logg         *logger.Logger
	metrics      *metrics.OrderMetrics
	eventFilter  map[enums.OutboxEventType]struct{}
}

// NewConsumer builds the order events consumer. The subscription may be nil
// in tests that call Process directly.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Settlements == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop source required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		settlements:  params.Settlements,
		invoices:     params.Invoices,
		orders:       params.Orders,
		shops:        params.Shops,
		notifier:     params.Notifier,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		logg:         params.Logger,
		metrics:      params.Metrics,
		eventFilter: map[enums.OutboxEventType]struct{}{
			enums.EventOrderCreated:   {},
			enums.EventOrderAccepted:  {},
			enums.EventOrderRejected:  {},
			enums.EventOrderDelivered: {},
			enums.EventOrderCanceled:  {},
			enums.EventShopApproved:   {},
			enums.EventShopRejected:   {},
		},
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("order events subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		eventType, err := enums.ParseOutboxEventType(msg.Attributes["event_type"])
		if err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "message_id", msg.ID), "unknown event type, dropping")
			msg.Ack()
			return
		}

		var envelope outbox.PayloadEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			c.logg.Error(c.logg.WithField(ctx, "message_id", msg.ID), "failed to decode envelope", err)
			msg.Ack()
			return
		}

		if err := c.Process(ctx, eventType, envelope); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process runs the side effects for one event exactly once. Returning an
// error releases the idempotency mark so the message can be redelivered.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if _, ok := c.eventFilter[eventType]; !ok {
		c.logg.Info(logCtx, "event not handled by order consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderEventsConsumer, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	start := time.Now()
	if err := c.handle(logCtx, eventType, envelope); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		_ = c.idempotency.Delete(ctx, orderEventsConsumer, eventID)
		return err
	}
	c.metrics.ObserveStage("consume_"+string(eventType), time.Since(start))
	return nil
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	switch eventType {
	case enums.EventOrderCreated:
		return c.handleOrderCreated(ctx, envelope)
	case enums.EventOrderAccepted:
		return c.handleOrderAccepted(ctx, envelope)
	case enums.EventOrderRejected:
		return c.handleOrderRejected(ctx, envelope)
	case enums.EventOrderDelivered:
		return c.handleOrderDelivered(ctx, envelope)
	case enums.EventOrderCanceled:
		return c.handleOrderCanceled(ctx, envelope)
	case enums.EventShopApproved, enums.EventShopRejected:
		return c.handleShopModerated(ctx, envelope)
	default:
		return nil
	}
}

// handleOrderCreated settles the commission split, builds the invoice and
// tells both sides about the new order. Settlement and invoice creation are
// idempotent on their own, so a redelivery after a partial failure is safe.
func (c *Consumer) handleOrderCreated(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode order_created payload: %w", err)
	}
	ctx = c.logg.WithOrderID(ctx, payload.OrderID.String())

	settleStart := time.Now()
	if _, err := c.settlements.SettleOrder(ctx, payload.OrderID); err != nil {
		return fmt.Errorf("settle order: %w", err)
	}
	c.metrics.ObserveStage("settlement", time.Since(settleStart))

	invoiceStart := time.Now()
	if _, err := c.invoices.BuildForOrder(ctx, payload.OrderID); err != nil {
		return fmt.Errorf("build invoice: %w", err)
	}
	c.metrics.ObserveStage("invoice", time.Since(invoiceStart))

	c.pushBestEffort(ctx, notifications.PushInput{
		UserID:  payload.CustomerID,
		Type:    enums.NotificationTypeOrderAlert,
		Title:   "Order placed",
		Message: fmt.Sprintf("Order #%d is waiting for the shop to accept.", payload.OrderNumber),
	})
	c.notifyShopOwner(ctx, payload.ShopID, notifications.PushInput{
		Type:    enums.NotificationTypeOrderAlert,
		Title:   "New order",
		Message: fmt.Sprintf("Order #%d was placed in your shop.", payload.OrderNumber),
		SendSMS: true,
	})
	return nil
}

func (c *Consumer) handleOrderAccepted(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.OrderAcceptedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode order_accepted payload: %w", err)
	}
	ctx = c.logg.WithOrderID(ctx, payload.OrderID.String())

	if err := c.orders.ApplyStockDecrement(ctx, payload.OrderID); err != nil {
		return fmt.Errorf("apply stock decrement: %w", err)
	}

	c.notifyCustomer(ctx, payload.OrderID, notifications.PushInput{
		Type:    enums.NotificationTypeOrderAlert,
		Title:   "Order accepted",
		Message: "The shop accepted your order and is preparing it.",
		SendSMS: true,
	})
	return nil
}

func (c *Consumer) handleOrderRejected(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.OrderRejectedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode order_rejected payload: %w", err)
	}

	message := "The shop could not take your order."
	if payload.Reason != "" {
		message = fmt.Sprintf("The shop could not take your order: %s", payload.Reason)
	}
	c.notifyCustomer(ctx, payload.OrderID, notifications.PushInput{
		Type:    enums.NotificationTypeOrderAlert,
		Title:   "Order rejected",
		Message: message,
		SendSMS: true,
	})
	return nil
}

func (c *Consumer) handleOrderDelivered(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.OrderDeliveredEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode order_delivered payload: %w", err)
	}

	c.notifyCustomer(ctx, payload.OrderID, notifications.PushInput{
		Type:    enums.NotificationTypeOrderAlert,
		Title:   "Order delivered",
		Message: "Your order was delivered. Thanks for shopping local.",
	})
	return nil
}

func (c *Consumer) handleOrderCanceled(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.OrderCanceledEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode order_canceled payload: %w", err)
	}

	c.notifyShopOwner(ctx, payload.ShopID, notifications.PushInput{
		Type:    enums.NotificationTypeOrderAlert,
		Title:   "Order canceled",
		Message: "The customer canceled a pending order.",
	})
	return nil
}

func (c *Consumer) handleShopModerated(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.ShopModeratedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode shop moderation payload: %w", err)
	}

	input := notifications.PushInput{
		Type:    enums.NotificationTypeShopAlert,
		Title:   "Shop approved",
		Message: "Your shop was approved and is now visible to customers.",
		SendSMS: true,
	}
	if payload.Status == enums.ShopStatusRejected {
		input.Title = "Shop rejected"
		input.Message = "Your shop registration was rejected."
		if payload.Reason != "" {
			input.Message = fmt.Sprintf("Your shop registration was rejected: %s", payload.Reason)
		}
	}
	c.notifyShopOwner(ctx, payload.ShopID, input)
	return nil
}

// notifyCustomer resolves the order to find its customer. Notifications are
// best effort and never fail the event.
func (c *Consumer) notifyCustomer(ctx context.Context, orderID uuid.UUID, input notifications.PushInput) {
	order, err := c.orders.GetOrder(ctx, orderID)
	if err != nil || order == nil {
		c.logg.Warn(c.logg.WithOrderID(ctx, orderID.String()), "customer notification skipped, order lookup failed")
		return
	}
	input.UserID = order.CustomerID
	c.pushBestEffort(ctx, input)
}

func (c *Consumer) notifyShopOwner(ctx context.Context, shopID uuid.UUID, input notifications.PushInput) {
	shop, err := c.shops.FindByID(ctx, shopID)
	if err != nil || shop == nil {
		c.logg.Warn(c.logg.WithShopID(ctx, shopID.String()), "vendor notification skipped, shop lookup failed")
		return
	}
	input.UserID = shop.UserID
	c.pushBestEffort(ctx, input)
}

func (c *Consumer) pushBestEffort(ctx context.Context, input notifications.PushInput) {
	if err := c.notifier.Push(ctx, input); err != nil {
		c.logg.Warn(c.logg.WithUserID(ctx, input.UserID.String()), "notification push failed")
	}
}
