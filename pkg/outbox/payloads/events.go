package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/enums"
)

// OrderCreatedEvent is emitted in the placement transaction; the worker
// picks it up to run settlement and build the invoice.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID          `json:"order_id"`
	OrderNumber   int64              `json:"order_number"`
	ShopID        uuid.UUID          `json:"shop_id"`
	CustomerID    uuid.UUID          `json:"customer_id"`
	DeliveryMode  enums.DeliveryMode `json:"delivery_mode"`
	GrandTotal    decimal.Decimal    `json:"grand_total"`
	ChargePending bool               `json:"charge_pending"`
}

// OrderAcceptedEvent is emitted when a vendor accepts; the worker applies
// the stock decrement exactly once in response.
type OrderAcceptedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	ShopID     uuid.UUID `json:"shop_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// OrderRejectedEvent notifies the customer that the vendor declined.
type OrderRejectedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	ShopID  uuid.UUID `json:"shop_id"`
	Reason  string    `json:"reason,omitempty"`
}

// OrderDeliveredEvent closes the loop after the OTP handoff.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	ShopID      uuid.UUID `json:"shop_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderCanceledEvent is emitted whenever a customer cancels a pending order.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	ShopID     uuid.UUID `json:"shop_id"`
	CanceledAt time.Time `json:"canceled_at"`
	Reason     string    `json:"reason,omitempty"`
}

// ShopModeratedEvent is emitted when an admin approves or rejects a shop.
type ShopModeratedEvent struct {
	ShopID uuid.UUID        `json:"shop_id"`
	Status enums.ShopStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
}
