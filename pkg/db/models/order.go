package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/enums"
)

// Order is a placed customer order. Subtotal, Discount, DeliveryCharge and
// GrandTotal are computed once at placement and never re-derived; status
// transitions mutate Status/PaymentStatus only.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    int64               `gorm:"column:order_number;autoIncrement;uniqueIndex"`
	ShopID         uuid.UUID           `gorm:"column:shop_id;type:uuid;not null;index"`
	CustomerID     uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	AddressID      *uuid.UUID          `gorm:"column:address_id;type:uuid"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	PaymentMethod  string              `gorm:"column:payment_method;not null;default:'cash'"`
	DeliveryMode   enums.DeliveryMode  `gorm:"column:delivery_mode;type:text;not null"`
	Subtotal       decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount       decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	DeliveryCharge decimal.Decimal     `gorm:"column:delivery_charge;type:numeric(12,2);not null;default:0"`
	GrandTotal     decimal.Decimal     `gorm:"column:grand_total;type:numeric(12,2);not null"`
	CouponCode     *string             `gorm:"column:coupon_code"`
	ChargePending  bool                `gorm:"column:charge_pending;not null;default:false"`
	VendorOTP      string              `gorm:"column:vendor_otp;not null"`
	CustomerOTP    string              `gorm:"column:customer_otp;not null"`
	StockApplied   bool                `gorm:"column:stock_applied;not null;default:false"`
	Notes          *string             `gorm:"column:notes"`
	Items          []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	AcceptedAt     *time.Time          `gorm:"column:accepted_at"`
	DeliveredAt    *time.Time          `gorm:"column:delivered_at"`
	CanceledAt     *time.Time          `gorm:"column:canceled_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a priced order line. UnitRate is the rate selected at
// placement (bargain, offer or MRP); MRP is kept for settlement math.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Name      string          `gorm:"column:name;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitRate  decimal.Decimal `gorm:"column:unit_rate;type:numeric(12,2);not null"`
	UnitMRP   decimal.Decimal `gorm:"column:unit_mrp;type:numeric(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	TaxRate   enums.TaxRate   `gorm:"column:tax_rate;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
