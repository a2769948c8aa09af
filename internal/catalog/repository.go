package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

// Repository persists products and variants.
type Repository interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	SetProductActive(ctx context.Context, id uuid.UUID, active bool) error
	ListByShop(ctx context.Context, shopID uuid.UUID, params pagination.Params) ([]models.Product, error)
	SearchByShop(ctx context.Context, shopID uuid.UUID, query string, params pagination.Params) ([]models.Product, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, quantity int) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed catalog repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *gormRepository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

func (r *gormRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *gormRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(product).Error
}

func (r *gormRepository) SetProductActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *gormRepository) ListByShop(ctx context.Context, shopID uuid.UUID, params pagination.Params) ([]models.Product, error) {
	return r.queryShopProducts(ctx, shopID, "", params)
}

func (r *gormRepository) SearchByShop(ctx context.Context, shopID uuid.UUID, query string, params pagination.Params) ([]models.Product, error) {
	return r.queryShopProducts(ctx, shopID, query, params)
}

func (r *gormRepository) queryShopProducts(ctx context.Context, shopID uuid.UUID, search string, params pagination.Params) ([]models.Product, error) {
	q := r.db.WithContext(ctx).
		Preload("Variants").
		Where("shop_id = ? AND is_active = ?", shopID, true).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if search != "" {
		q = q.Where("name ILIKE ?", "%"+search+"%")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DecrementStock atomically takes quantity off a product or variant row. The
// qty guard in the WHERE clause is the stock invariant; zero rows affected
// means another order raced us to the last units.
func (r *gormRepository) DecrementStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, quantity int) error {
	db := tx
	if db == nil {
		db = r.db
	}

	var result *gorm.DB
	if variantID != nil {
		result = db.WithContext(ctx).Model(&models.ProductVariant{}).
			Where("id = ? AND quantity >= ?", *variantID, quantity).
			Update("quantity", gorm.Expr("quantity - ?", quantity))
	} else {
		result = db.WithContext(ctx).Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", productID, quantity).
			Update("quantity", gorm.Expr("quantity - ?", quantity))
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("stock decrement rejected for product %s", productID)
	}
	return nil
}
