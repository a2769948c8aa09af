package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DeliveryOption is a shop's delivery configuration. Exactly one row per
// shop, enforced by the unique index; writes go through an upsert.
type DeliveryOption struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID                uuid.UUID        `gorm:"column:shop_id;type:uuid;not null;uniqueIndex"`
	Modes                 pq.StringArray   `gorm:"column:modes;type:text[];not null;default:ARRAY[]::text[]"`
	DeliveryCharge        *decimal.Decimal `gorm:"column:delivery_charge;type:numeric(12,2)"`
	FreeDeliveryThreshold *decimal.Decimal `gorm:"column:free_delivery_threshold;type:numeric(12,2)"`
	ServiceWindowEnd      *string          `gorm:"column:service_window_end"`
	DeliveryRadiusKM      *float64         `gorm:"column:delivery_radius_km;type:numeric(6,2)"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
