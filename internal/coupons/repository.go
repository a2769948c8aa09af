package coupons

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/pkg/db/models"
)

// Repository persists coupons.
type Repository interface {
	FindActive(ctx context.Context, shopID uuid.UUID, code string, now time.Time) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Coupon, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed coupon repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindActive(ctx context.Context, shopID uuid.UUID, code string, now time.Time) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND code = ? AND is_active = ?", shopID, code, true).
		Where("valid_from IS NULL OR valid_from <= ?", now).
		Where("valid_to IS NULL OR valid_to >= ?", now).
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *gormRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *gormRepository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Coupon, error) {
	var rows []models.Coupon
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *gormRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}
