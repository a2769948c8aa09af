package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/enums"
)

// Product represents a shop listing. All price columns are tax-inclusive
// rupee amounts; MRP is mandatory, the rest are optional overrides used by
// the cart pricer (bargain band, offer price).
type Product struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID             uuid.UUID        `gorm:"column:shop_id;type:uuid;not null;index"`
	Name               string           `gorm:"column:name;not null"`
	Code               *string          `gorm:"column:code"`
	Description        *string          `gorm:"column:description"`
	MRP                decimal.Decimal  `gorm:"column:mrp;type:numeric(12,2);not null"`
	OfferPrice         *decimal.Decimal `gorm:"column:offer_price;type:numeric(12,2)"`
	LowestSellingRate  *decimal.Decimal `gorm:"column:lowest_selling_rate;type:numeric(12,2)"`
	HighestSellingRate *decimal.Decimal `gorm:"column:highest_selling_rate;type:numeric(12,2)"`
	TaxRate            enums.TaxRate    `gorm:"column:tax_rate;not null;default:5"`
	Quantity           int              `gorm:"column:quantity;not null;default:0"`
	Unit               *string          `gorm:"column:unit"`
	IsActive           bool             `gorm:"column:is_active;not null;default:true"`
	Variants           []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is a sellable variation (size, pack) with its own pricing
// and stock. A variant inherits the parent's tax rate.
type ProductVariant struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID          uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Name               string           `gorm:"column:name;not null"`
	MRP                decimal.Decimal  `gorm:"column:mrp;type:numeric(12,2);not null"`
	OfferPrice         *decimal.Decimal `gorm:"column:offer_price;type:numeric(12,2)"`
	LowestSellingRate  *decimal.Decimal `gorm:"column:lowest_selling_rate;type:numeric(12,2)"`
	HighestSellingRate *decimal.Decimal `gorm:"column:highest_selling_rate;type:numeric(12,2)"`
	Quantity           int              `gorm:"column:quantity;not null;default:0"`
	IsActive           bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
