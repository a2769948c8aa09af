package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/pkg/db/models"
)

// Repository persists settlement rows.
type Repository interface {
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error)
	Create(ctx context.Context, row *models.Settlement) error
	ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]models.Settlement, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed settlement repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error) {
	var row models.Settlement
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *gormRepository) Create(ctx context.Context, row *models.Settlement) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *gormRepository) ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]models.Settlement, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Settlement
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = settlements.order_id").
		Where("orders.shop_id = ?", shopID).
		Order("settlements.created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
