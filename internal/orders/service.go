// Package orders orchestrates checkout: cart pricing, coupon and delivery
// resolution, order persistence and the vendor/customer status workflow.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/internal/coupons"
	"github.com/townielabs/townie-backend/internal/delivery"
	"github.com/townielabs/townie-backend/internal/pricing"
	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/metrics"
	"github.com/townielabs/townie-backend/pkg/money"
	"github.com/townielabs/townie-backend/pkg/outbox"
	"github.com/townielabs/townie-backend/pkg/outbox/payloads"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

// ShopSource resolves the shop and its delivery configuration.
type ShopSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindDeliveryOption(ctx context.Context, shopID uuid.UUID) (*models.DeliveryOption, error)
}

// CatalogSource prices cart lines and applies stock decrements.
type CatalogSource interface {
	Snapshot(ctx context.Context, ref pricing.ItemRef) (*pricing.ItemSnapshot, error)
	ApplyDecrements(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error
}

// CouponSource resolves an applicable coupon for a shop and code.
type CouponSource interface {
	Resolve(ctx context.Context, shopID uuid.UUID, code *string, now time.Time) (*models.Coupon, error)
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events to the transactional outbox.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the order workflow surface.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Accept(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error)
	Reject(ctx context.Context, shopID, orderID uuid.UUID, reason string) (*models.Order, error)
	MarkReady(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error)
	Dispatch(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error)
	MarkDelivered(ctx context.Context, shopID, orderID uuid.UUID, customerOTP string) (*models.Order, error)
	Cancel(ctx context.Context, customerID, orderID uuid.UUID, reason string) (*models.Order, error)
	ApplyStockDecrement(ctx context.Context, orderID uuid.UUID) error
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListForShop(ctx context.Context, shopID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error)
	ListRecent(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error)
}

// CartLineInput is one requested line from the checkout payload.
type CartLineInput struct {
	ProductID     uuid.UUID
	VariantID     *uuid.UUID
	Quantity      int
	BargainAmount *decimal.Decimal
}

// PlaceOrderInput is the checkout request.
type PlaceOrderInput struct {
	CustomerID    uuid.UUID
	ShopID        uuid.UUID
	AddressID     *uuid.UUID
	DeliveryMode  string
	PaymentMethod string
	CouponCode    *string
	Notes         *string
	Lines         []CartLineInput
}

type service struct {
	repo    Repository
	shops   ShopSource
	catalog CatalogSource
	coupons CouponSource
	tx      TxRunner
	events  EventEmitter
	pricing config.PricingConfig
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

// NewService wires the order service.
func NewService(repo Repository, shops ShopSource, catalog CatalogSource, couponSource CouponSource, tx TxRunner, events EventEmitter, pricingCfg config.PricingConfig, logg *logger.Logger, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if shops == nil {
		return nil, fmt.Errorf("shop source required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	if couponSource == nil {
		return nil, fmt.Errorf("coupon source required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{
		repo:    repo,
		shops:   shops,
		catalog: catalog,
		coupons: couponSource,
		tx:      tx,
		events:  events,
		pricing: pricingCfg,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}, nil
}

// PlaceOrder runs the full checkout pipeline and persists the order with its
// totals fixed. Totals are never recomputed after this point; a delivery
// config failure marks the order charge-pending instead of failing checkout.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil || input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer and shop are required")
	}
	mode, err := enums.ParseDeliveryMode(input.DeliveryMode)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery mode")
	}

	shop, err := s.shops.FindByID(ctx, input.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup shop")
	}
	if shop == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	if shop.Status != enums.ShopStatusApproved || !shop.Available {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shop is not accepting orders")
	}

	lines := make([]pricing.CartLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		lines = append(lines, pricing.CartLine{
			Ref:           pricing.ItemRef{ProductID: line.ProductID, VariantID: line.VariantID},
			Quantity:      line.Quantity,
			BargainAmount: line.BargainAmount,
		})
	}
	cart, err := pricing.PriceCart(ctx, s.catalog, lines)
	if err != nil {
		s.metrics.IncPricingFailure(pricingFailureReason(err))
		return nil, err
	}

	now := s.now()
	coupon, err := s.coupons.Resolve(ctx, input.ShopID, input.CouponCode, now)
	if err != nil {
		return nil, err
	}
	discount, _ := coupons.Apply(cart.Subtotal, coupon)

	option, err := s.shops.FindDeliveryOption(ctx, input.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup delivery option")
	}
	if option == nil && s.logg != nil {
		s.logg.Warn(s.logg.WithShopID(ctx, input.ShopID.String()),
			"shop has no delivery option configured, charging nothing")
	}

	charge := money.Zero
	chargePending := false
	quote, err := delivery.Resolve(mode, cart.Subtotal, option, now, s.pricing)
	if err != nil {
		chargePending = true
		s.metrics.IncPricingFailure("delivery_config")
		if s.logg != nil {
			s.logg.Warn(s.logg.WithShopID(ctx, input.ShopID.String()),
				"delivery charge unresolved, order marked pending reconciliation")
		}
	} else {
		charge = quote.Charge
	}

	vendorOTP, err := newOTP()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate vendor otp")
	}
	customerOTP, err := newOTP()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate customer otp")
	}

	paymentMethod := enums.PaymentMethodCash
	if input.PaymentMethod != "" {
		paymentMethod, err = enums.ParsePaymentMethod(input.PaymentMethod)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
		}
	}

	order := &models.Order{
		ShopID:         input.ShopID,
		CustomerID:     input.CustomerID,
		AddressID:      input.AddressID,
		Status:         enums.OrderStatusPending,
		PaymentStatus:  enums.PaymentStatusUnpaid,
		PaymentMethod:  paymentMethod.String(),
		DeliveryMode:   mode,
		Subtotal:       money.Round2(cart.Subtotal),
		Discount:       money.Round2(discount),
		DeliveryCharge: money.Round2(charge),
		GrandTotal:     money.Round2(cart.Subtotal.Sub(discount).Add(charge)),
		ChargePending:  chargePending,
		VendorOTP:      vendorOTP,
		CustomerOTP:    customerOTP,
		Notes:          input.Notes,
	}
	if coupon != nil {
		order.CouponCode = &coupon.Code
	}
	for _, line := range cart.Lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.Ref.ProductID,
			VariantID: line.Ref.VariantID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitRate:  line.UnitRate,
			UnitMRP:   line.UnitMRP,
			LineTotal: line.LineTotal,
			TaxRate:   line.TaxRate,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(ctx, tx, order); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				ShopID:        order.ShopID,
				CustomerID:    order.CustomerID,
				DeliveryMode:  order.DeliveryMode,
				GrandTotal:    order.GrandTotal,
				ChargePending: order.ChargePending,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	s.metrics.IncPlaced(string(mode))
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()),
			fmt.Sprintf("order placed for %s via %s", order.GrandTotal, mode))
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindWithItems(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// Accept moves a pending order to accepted and queues the event the worker
// uses to take stock.
func (s *service) Accept(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.shopOrder(ctx, shopID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be accepted")
	}

	now := s.now()
	order.Status = enums.OrderStatusAccepted
	order.AcceptedAt = &now
	err = s.transition(ctx, order, outbox.DomainEvent{
		EventType:     enums.EventOrderAccepted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderAcceptedEvent{
			OrderID:    order.ID,
			ShopID:     order.ShopID,
			AcceptedAt: now,
		},
		Version:    1,
		OccurredAt: now,
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Reject(ctx context.Context, shopID, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.shopOrder(ctx, shopID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be rejected")
	}

	now := s.now()
	order.Status = enums.OrderStatusRejected
	err = s.transition(ctx, order, outbox.DomainEvent{
		EventType:     enums.EventOrderRejected,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderRejectedEvent{
			OrderID: order.ID,
			ShopID:  order.ShopID,
			Reason:  reason,
		},
		Version:    1,
		OccurredAt: now,
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) MarkReady(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error) {
	return s.simpleTransition(ctx, shopID, orderID, enums.OrderStatusAccepted, enums.OrderStatusReady)
}

func (s *service) Dispatch(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error) {
	return s.simpleTransition(ctx, shopID, orderID, enums.OrderStatusReady, enums.OrderStatusDispatched)
}

// MarkDelivered closes an order after the customer's OTP checks out. Cash
// orders are marked paid on handoff.
func (s *service) MarkDelivered(ctx context.Context, shopID, orderID uuid.UUID, customerOTP string) (*models.Order, error) {
	order, err := s.shopOrder(ctx, shopID, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case enums.OrderStatusAccepted, enums.OrderStatusReady, enums.OrderStatusDispatched:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not out for handoff")
	}
	if customerOTP == "" || customerOTP != order.CustomerOTP {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer otp mismatch")
	}

	now := s.now()
	order.Status = enums.OrderStatusDelivered
	order.DeliveredAt = &now
	if order.PaymentStatus == enums.PaymentStatusUnpaid {
		order.PaymentStatus = enums.PaymentStatusPaid
	}
	err = s.transition(ctx, order, outbox.DomainEvent{
		EventType:     enums.EventOrderDelivered,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderDeliveredEvent{
			OrderID:     order.ID,
			ShopID:      order.ShopID,
			DeliveredAt: now,
		},
		Version:    1,
		OccurredAt: now,
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Cancel(ctx context.Context, customerID, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only pending orders can be canceled")
	}

	now := s.now()
	order.Status = enums.OrderStatusCanceled
	order.CanceledAt = &now
	err = s.transition(ctx, order, outbox.DomainEvent{
		EventType:     enums.EventOrderCanceled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.UserRoleCustomer)},
		Data: payloads.OrderCanceledEvent{
			OrderID:    order.ID,
			ShopID:     order.ShopID,
			CanceledAt: now,
			Reason:     reason,
		},
		Version:    1,
		OccurredAt: now,
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ApplyStockDecrement takes the ordered quantities off stock exactly once
// per order, no matter how many times the accept event is redelivered.
func (s *service) ApplyStockDecrement(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claimed, err := s.repo.ClaimStockApplicationTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
		return s.catalog.ApplyDecrements(ctx, tx, order.Items)
	})
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	rows, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) ListForShop(ctx context.Context, shopID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	rows, err := s.repo.ListByShop(ctx, shopID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) ListRecent(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	rows, err := s.repo.ListRecent(ctx, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) simpleTransition(ctx context.Context, shopID, orderID uuid.UUID, from, to enums.OrderStatus) (*models.Order, error) {
	order, err := s.shopOrder(ctx, shopID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != from {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order must be %s to become %s", from, to))
	}
	order.Status = to
	if err := s.repo.UpdateTx(ctx, nil, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	return order, nil
}

func (s *service) transition(ctx context.Context, order *models.Order, event outbox.DomainEvent) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(ctx, tx, order); err != nil {
			return err
		}
		return s.events.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	return nil
}

func (s *service) shopOrder(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ShopID != shopID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func pricingFailureReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "internal"
	}
	switch typed.Code() {
	case pkgerrors.CodeInsufficientStock:
		return "insufficient_stock"
	case pkgerrors.CodeNotFound:
		return "product_not_found"
	case pkgerrors.CodeValidation:
		return "invalid_cart"
	}
	return "internal"
}
