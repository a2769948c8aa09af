package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbpkg "github.com/townielabs/townie-backend/pkg/db"
	"github.com/townielabs/townie-backend/pkg/db/models"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
)

// Service defines coupon resolution for pricing plus the vendor-facing CRUD.
type Service interface {
	Resolve(ctx context.Context, shopID uuid.UUID, code *string, now time.Time) (*models.Coupon, error)
	Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error)
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Coupon, error)
	Deactivate(ctx context.Context, shopID, couponID uuid.UUID) error
}

// CreateCouponInput captures the vendor's coupon definition.
type CreateCouponInput struct {
	ShopID       uuid.UUID
	Code         string
	Description  *string
	Discount     decimal.Decimal
	IsPercentage bool
	ValidFrom    *time.Time
	ValidTo      *time.Time
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the coupon service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Resolve returns the applicable coupon for (shop, code) or nil. A missing,
// inactive, or expired coupon resolves to nil without error.
func (s *service) Resolve(ctx context.Context, shopID uuid.UUID, code *string, now time.Time) (*models.Coupon, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil, nil
	}
	coupon, err := s.repo.FindActive(ctx, shopID, strings.TrimSpace(*code), now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
	}
	if coupon == nil && s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "coupon_code", *code), "coupon not applicable, pricing without discount")
	}
	return coupon, nil
}

func (s *service) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !input.Discount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must be positive")
	}
	if input.IsPercentage && input.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if input.ValidFrom != nil && input.ValidTo != nil && input.ValidTo.Before(*input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_to must be after valid_from")
	}

	coupon := &models.Coupon{
		ShopID:       input.ShopID,
		Code:         code,
		Description:  input.Description,
		Discount:     input.Discount,
		IsPercentage: input.IsPercentage,
		IsActive:     true,
		ValidFrom:    input.ValidFrom,
		ValidTo:      input.ValidTo,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_coupons_shop_code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists for this shop")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Coupon, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	rows, err := s.repo.ListByShop(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return rows, nil
}

func (s *service) Deactivate(ctx context.Context, shopID, couponID uuid.UUID) error {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup coupon")
	}
	if coupon == nil || coupon.ShopID != shopID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if err := s.repo.SetActive(ctx, couponID, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate coupon")
	}
	return nil
}
