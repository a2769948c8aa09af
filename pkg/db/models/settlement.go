package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/enums"
)

// Settlement records the one-time commission split for an order. The unique
// index on OrderID is what makes the worker-side computation idempotent.
type Settlement struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	DeliveryMode   enums.DeliveryMode `gorm:"column:delivery_mode;type:text;not null"`
	TotalCost      decimal.Decimal    `gorm:"column:total_cost;type:numeric(12,2);not null"`
	ReferralFee    decimal.Decimal    `gorm:"column:referral_fee;type:numeric(12,2);not null"`
	TCS            decimal.Decimal    `gorm:"column:tcs;type:numeric(12,2);not null"`
	TDR            decimal.Decimal    `gorm:"column:tdr;type:numeric(12,2);not null"`
	TSF            decimal.Decimal    `gorm:"column:tsf;type:numeric(12,2);not null;default:0"`
	PlatformAmount decimal.Decimal    `gorm:"column:platform_amount;type:numeric(12,2);not null"`
	VendorAmount   decimal.Decimal    `gorm:"column:vendor_amount;type:numeric(12,2);not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}
