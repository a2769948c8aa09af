package shops

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
)

// Repository persists shops and their delivery options.
type Repository interface {
	Create(ctx context.Context, shop *models.Shop) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Shop, error)
	Update(ctx context.Context, shop *models.Shop) error
	UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.ShopStatus) error
	ListByStatus(ctx context.Context, status enums.ShopStatus, limit int) ([]models.Shop, error)
	ListApprovedInBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]models.Shop, error)
	UpsertDeliveryOption(ctx context.Context, option *models.DeliveryOption) error
	FindDeliveryOption(ctx context.Context, shopID uuid.UUID) (*models.DeliveryOption, error)
	ListCategories(ctx context.Context) ([]models.ShopCategory, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed shop repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&shop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

func (r *gormRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&shop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

func (r *gormRepository) Update(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).Save(shop).Error
}

func (r *gormRepository) UpdateStatusTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, status enums.ShopStatus) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Model(&models.Shop{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *gormRepository) ListByStatus(ctx context.Context, status enums.ShopStatus, limit int) ([]models.Shop, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Shop
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) ListApprovedInBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]models.Shop, error) {
	var rows []models.Shop
	err := r.db.WithContext(ctx).
		Where("status = ? AND available = ?", enums.ShopStatusApproved, true).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng).
		Find(&rows).Error
	return rows, err
}

// UpsertDeliveryOption keeps the one-row-per-shop invariant: a second write
// for the same shop overwrites the configuration instead of adding a row.
func (r *gormRepository) UpsertDeliveryOption(ctx context.Context, option *models.DeliveryOption) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "shop_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"modes", "delivery_charge", "free_delivery_threshold",
				"service_window_end", "delivery_radius_km", "updated_at",
			}),
		}).
		Create(option).Error
}

func (r *gormRepository) FindDeliveryOption(ctx context.Context, shopID uuid.UUID) (*models.DeliveryOption, error) {
	var option models.DeliveryOption
	err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).First(&option).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &option, nil
}

func (r *gormRepository) ListCategories(ctx context.Context) ([]models.ShopCategory, error) {
	var rows []models.ShopCategory
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
