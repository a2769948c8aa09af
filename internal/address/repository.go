package address

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/pkg/db/models"
)

// Repository persists saved delivery addresses.
type Repository interface {
	Create(ctx context.Context, addr *models.Address) error
	Update(ctx context.Context, addr *models.Address) error
	FindByID(ctx context.Context, customerID, id uuid.UUID) (*models.Address, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Address, error)
	Delete(ctx context.Context, customerID, id uuid.UUID) (bool, error)
	ClearDefault(ctx context.Context, customerID uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository constructs an address repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, addr *models.Address) error {
	return r.db.WithContext(ctx).Create(addr).Error
}

func (r *gormRepository) Update(ctx context.Context, addr *models.Address) error {
	return r.db.WithContext(ctx).Save(addr).Error
}

// FindByID is scoped to the owning customer so a guessed id never leaks
// another customer's address.
func (r *gormRepository) FindByID(ctx context.Context, customerID, id uuid.UUID) (*models.Address, error) {
	var addr models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", id, customerID).
		First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &addr, nil
}

func (r *gormRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Address, error) {
	var addrs []models.Address
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&addrs).Error
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

func (r *gormRepository) Delete(ctx context.Context, customerID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", id, customerID).
		Delete(&models.Address{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) ClearDefault(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("customer_id = ? AND is_default", customerID).
		UpdateColumn("is_default", false).Error
}
