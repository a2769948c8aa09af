// Package catalog owns product listings and stock, and serves the price
// snapshots the cart pricer works against.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/internal/pricing"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

// Service exposes catalog lookups for pricing plus the vendor-facing
// product CRUD. It satisfies pricing.Catalog.
type Service interface {
	Snapshot(ctx context.Context, ref pricing.ItemRef) (*pricing.ItemSnapshot, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, shopID, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListShopProducts(ctx context.Context, shopID uuid.UUID, search string, params pagination.Params) ([]models.Product, error)
	DeactivateProduct(ctx context.Context, shopID, productID uuid.UUID) error
	ApplyDecrements(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error
}

// CreateProductInput is the vendor's listing definition.
type CreateProductInput struct {
	ShopID             uuid.UUID
	Name               string
	Code               *string
	Description        *string
	MRP                decimal.Decimal
	OfferPrice         *decimal.Decimal
	LowestSellingRate  *decimal.Decimal
	HighestSellingRate *decimal.Decimal
	TaxRate            int
	Quantity           int
	Unit               *string
	Variants           []VariantInput
}

// VariantInput is one sellable variation on a listing.
type VariantInput struct {
	Name               string
	MRP                decimal.Decimal
	OfferPrice         *decimal.Decimal
	LowestSellingRate  *decimal.Decimal
	HighestSellingRate *decimal.Decimal
	Quantity           int
}

// UpdateProductInput carries the mutable listing fields. Nil means keep.
type UpdateProductInput struct {
	Name               *string
	Description        *string
	MRP                *decimal.Decimal
	OfferPrice         *decimal.Decimal
	LowestSellingRate  *decimal.Decimal
	HighestSellingRate *decimal.Decimal
	TaxRate            *int
	Quantity           *int
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the catalog service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Snapshot resolves a cart reference to its price and stock view. A variant
// reference prices against the variant row but inherits the parent tax rate.
func (s *service) Snapshot(ctx context.Context, ref pricing.ItemRef) (*pricing.ItemSnapshot, error) {
	product, err := s.repo.FindProduct(ctx, ref.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if product == nil || !product.IsActive {
		return nil, nil
	}

	if ref.VariantID == nil {
		return &pricing.ItemSnapshot{
			Ref:                ref,
			Name:               product.Name,
			MRP:                product.MRP,
			OfferPrice:         product.OfferPrice,
			LowestSellingRate:  product.LowestSellingRate,
			HighestSellingRate: product.HighestSellingRate,
			TaxRate:            product.TaxRate,
			QuantityOnHand:     product.Quantity,
		}, nil
	}

	for _, variant := range product.Variants {
		if variant.ID == *ref.VariantID && variant.IsActive {
			return &pricing.ItemSnapshot{
				Ref:                ref,
				Name:               product.Name + " " + variant.Name,
				MRP:                variant.MRP,
				OfferPrice:         variant.OfferPrice,
				LowestSellingRate:  variant.LowestSellingRate,
				HighestSellingRate: variant.HighestSellingRate,
				TaxRate:            product.TaxRate,
				QuantityOnHand:     variant.Quantity,
			}, nil
		}
	}
	return nil, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if err := validatePricing(input.MRP, input.OfferPrice, input.LowestSellingRate, input.HighestSellingRate); err != nil {
		return nil, err
	}
	taxRate, err := enums.ParseTaxRate(input.TaxRate)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must be one of 5, 12, 18, 28")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	product := &models.Product{
		ShopID:             input.ShopID,
		Name:               name,
		Code:               input.Code,
		Description:        input.Description,
		MRP:                input.MRP,
		OfferPrice:         input.OfferPrice,
		LowestSellingRate:  input.LowestSellingRate,
		HighestSellingRate: input.HighestSellingRate,
		TaxRate:            taxRate,
		Quantity:           input.Quantity,
		Unit:               input.Unit,
		IsActive:           true,
	}
	for _, v := range input.Variants {
		if err := validatePricing(v.MRP, v.OfferPrice, v.LowestSellingRate, v.HighestSellingRate); err != nil {
			return nil, err
		}
		product.Variants = append(product.Variants, models.ProductVariant{
			Name:               strings.TrimSpace(v.Name),
			MRP:                v.MRP,
			OfferPrice:         v.OfferPrice,
			LowestSellingRate:  v.LowestSellingRate,
			HighestSellingRate: v.HighestSellingRate,
			Quantity:           v.Quantity,
			IsActive:           true,
		})
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, shopID, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, shopID, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.MRP != nil {
		product.MRP = *input.MRP
	}
	if input.OfferPrice != nil {
		product.OfferPrice = input.OfferPrice
	}
	if input.LowestSellingRate != nil {
		product.LowestSellingRate = input.LowestSellingRate
	}
	if input.HighestSellingRate != nil {
		product.HighestSellingRate = input.HighestSellingRate
	}
	if input.TaxRate != nil {
		taxRate, err := enums.ParseTaxRate(*input.TaxRate)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must be one of 5, 12, 18, 28")
		}
		product.TaxRate = taxRate
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
		}
		product.Quantity = *input.Quantity
	}
	if err := validatePricing(product.MRP, product.OfferPrice, product.LowestSellingRate, product.HighestSellingRate); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ListShopProducts(ctx context.Context, shopID uuid.UUID, search string, params pagination.Params) ([]models.Product, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	var (
		rows []models.Product
		err  error
	)
	if strings.TrimSpace(search) != "" {
		rows, err = s.repo.SearchByShop(ctx, shopID, strings.TrimSpace(search), params)
	} else {
		rows, err = s.repo.ListByShop(ctx, shopID, params)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, nil
}

func (s *service) DeactivateProduct(ctx context.Context, shopID, productID uuid.UUID) error {
	if _, err := s.ownedProduct(ctx, shopID, productID); err != nil {
		return err
	}
	if err := s.repo.SetProductActive(ctx, productID, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

// ApplyDecrements takes the ordered quantities off stock inside the caller's
// transaction. Any rejected row rolls back the whole batch via the returned
// error.
func (s *service) ApplyDecrements(ctx context.Context, tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		if err := s.repo.DecrementStock(ctx, tx, item.ProductID, item.VariantID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, err, "apply stock decrement").
				WithDetails(pricing.InsufficientStockDetail{ProductName: item.Name})
		}
	}
	return nil
}

func (s *service) ownedProduct(ctx context.Context, shopID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if product == nil || product.ShopID != shopID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func validatePricing(mrp decimal.Decimal, offer, lowest, highest *decimal.Decimal) error {
	if !mrp.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "mrp must be positive")
	}
	if offer != nil && offer.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer price must not be negative")
	}
	if (lowest == nil) != (highest == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "bargain band needs both bounds")
	}
	if lowest != nil && highest != nil && highest.LessThan(*lowest) {
		return pkgerrors.New(pkgerrors.CodeValidation, "bargain band bounds are inverted")
	}
	return nil
}
