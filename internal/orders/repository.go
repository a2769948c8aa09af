package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

// Repository persists orders and their line items.
type Repository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	FindWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	ClaimStockApplicationTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	ExpirePendingTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, canceledAt time.Time) (bool, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error)
	ListRecent(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed order repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(order).Error
}

func (r *gormRepository) FindWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) UpdateTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Omit("Items").Save(order).Error
}

// ClaimStockApplicationTx flips stock_applied exactly once. The guarded
// update is what keeps redelivered accept events from decrementing twice.
func (r *gormRepository) ClaimStockApplicationTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	result := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND stock_applied = ?", id, false).
		Update("stock_applied", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExpirePendingTx cancels a pending order with a guarded update so a vendor
// accepting concurrently wins the race.
func (r *gormRepository) ExpirePendingTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, canceledAt time.Time) (bool, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	result := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":      enums.OrderStatusCanceled,
			"canceled_at": canceledAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID)
	return r.page(ctx, q, params)
}

func (r *gormRepository) ListByShop(ctx context.Context, shopID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("shop_id = ?", shopID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	return r.page(ctx, q, params)
}

func (r *gormRepository) ListRecent(ctx context.Context, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	return r.page(ctx, q, params)
}

func (r *gormRepository) page(_ context.Context, q *gorm.DB, params pagination.Params) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = q.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}
