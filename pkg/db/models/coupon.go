package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon is a shop-scoped discount code. Discount is either a percentage of
// the subtotal or a flat amount depending on IsPercentage.
type Coupon struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID       uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:idx_coupons_shop_code"`
	Code         string          `gorm:"column:code;not null;uniqueIndex:idx_coupons_shop_code"`
	Description  *string         `gorm:"column:description"`
	Discount     decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null"`
	IsPercentage bool            `gorm:"column:is_percentage;not null;default:false"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	ValidFrom    *time.Time      `gorm:"column:valid_from"`
	ValidTo      *time.Time      `gorm:"column:valid_to"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
