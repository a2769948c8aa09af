package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is one GST-broken-out row of an order invoice, including the
// synthetic delivery/service charge rows. Position preserves print order.
type InvoiceLine struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position       int             `gorm:"column:position;not null"`
	Name           string          `gorm:"column:name;not null"`
	Quantity       int             `gorm:"column:quantity;not null;default:1"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal      decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CGST           decimal.Decimal `gorm:"column:cgst;type:numeric(12,2);not null;default:0"`
	SGST           decimal.Decimal `gorm:"column:sgst;type:numeric(12,2);not null;default:0"`
	IGST           decimal.Decimal `gorm:"column:igst;type:numeric(12,2);not null;default:0"`
	Cess           decimal.Decimal `gorm:"column:cess;type:numeric(12,2);not null;default:0"`
	LineGrandTotal decimal.Decimal `gorm:"column:line_grand_total;type:numeric(12,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
