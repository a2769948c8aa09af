package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the buyer profile linked to a user identity.
type Customer struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name         string    `gorm:"column:name;not null"`
	MobileNumber string    `gorm:"column:mobile_number;not null"`
	Email        *string   `gorm:"column:email"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Address is a saved delivery address for a customer.
type Address struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID  uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	Line1       string    `gorm:"column:line1;not null"`
	Locality    *string   `gorm:"column:locality"`
	Pincode     string    `gorm:"column:pincode;not null"`
	Latitude    *float64  `gorm:"column:latitude;type:numeric(9,6)"`
	Longitude   *float64  `gorm:"column:longitude;type:numeric(9,6)"`
	AddressType string    `gorm:"column:address_type;not null;default:'home'"`
	IsDefault   bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
