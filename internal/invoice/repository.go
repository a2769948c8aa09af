package invoice

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/pkg/db/models"
)

// Repository persists invoice lines.
type Repository interface {
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	CreateBatch(ctx context.Context, lines []models.InvoiceLine) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.InvoiceLine, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed invoice line repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InvoiceLine{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) CreateBatch(ctx context.Context, lines []models.InvoiceLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *gormRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.InvoiceLine, error) {
	var rows []models.InvoiceLine
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}
