package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/pkg/enums"
)

// Shop represents a vendor storefront. Only approved shops are listed to
// customers; Available is the vendor's own open/closed toggle.
type Shop struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	CategoryID   *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	ShopName     string           `gorm:"column:shop_name;not null"`
	BusinessName *string          `gorm:"column:business_name"`
	GSTNumber    *string          `gorm:"column:gst_number"`
	Description  *string          `gorm:"column:description"`
	Address      string           `gorm:"column:address;not null"`
	Locality     *string          `gorm:"column:locality"`
	Pincode      string           `gorm:"column:pincode;not null"`
	Latitude     float64          `gorm:"column:latitude;type:numeric(9,6);not null"`
	Longitude    float64          `gorm:"column:longitude;type:numeric(9,6);not null"`
	OpeningTime  *string          `gorm:"column:opening_time"`
	ClosingTime  *string          `gorm:"column:closing_time"`
	Status       enums.ShopStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Available    bool             `gorm:"column:available;not null;default:true"`
	Rating       *float64         `gorm:"column:rating;type:numeric(3,2)"`
	Category     *ShopCategory    `gorm:"foreignKey:CategoryID"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ShopCategory is the browsable grouping shown on the storefront.
type ShopCategory struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Description *string   `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
