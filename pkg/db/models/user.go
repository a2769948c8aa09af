package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MobileNumber string         `gorm:"column:mobile_number;not null;uniqueIndex"`
	Email        *string        `gorm:"column:email"`
	PasswordHash *string        `gorm:"column:password_hash"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
