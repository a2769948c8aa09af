package coupons

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/db/models"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
)

type stubRepo struct {
	coupons   map[uuid.UUID]*models.Coupon
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{coupons: map[uuid.UUID]*models.Coupon{}}
}

func (r *stubRepo) FindActive(_ context.Context, shopID uuid.UUID, code string, now time.Time) (*models.Coupon, error) {
	for _, c := range r.coupons {
		if c.ShopID != shopID || c.Code != code || !c.IsActive {
			continue
		}
		if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
			continue
		}
		if c.ValidTo != nil && now.After(*c.ValidTo) {
			continue
		}
		return c, nil
	}
	return nil, nil
}

func (r *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	return r.coupons[id], nil
}

func (r *stubRepo) Create(_ context.Context, coupon *models.Coupon) error {
	if r.createErr != nil {
		return r.createErr
	}
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	r.coupons[coupon.ID] = coupon
	return nil
}

func (r *stubRepo) ListByShop(_ context.Context, shopID uuid.UUID) ([]models.Coupon, error) {
	var rows []models.Coupon
	for _, c := range r.coupons {
		if c.ShopID == shopID {
			rows = append(rows, *c)
		}
	}
	return rows, nil
}

func (r *stubRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if c, ok := r.coupons[id]; ok {
		c.IsActive = active
	}
	return nil
}

func TestService_ResolveSilentOnMissing(t *testing.T) {
	svc, err := NewService(newStubRepo(), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	code := "NOPE"
	coupon, err := svc.Resolve(context.Background(), uuid.New(), &code, time.Now())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if coupon != nil {
		t.Fatalf("expected nil coupon for unknown code, got %+v", coupon)
	}
}

func TestService_ResolveNilAndBlankCode(t *testing.T) {
	svc, _ := NewService(newStubRepo(), nil)

	coupon, err := svc.Resolve(context.Background(), uuid.New(), nil, time.Now())
	if err != nil || coupon != nil {
		t.Fatalf("nil code: got (%+v, %v), want (nil, nil)", coupon, err)
	}
	blank := "   "
	coupon, err = svc.Resolve(context.Background(), uuid.New(), &blank, time.Now())
	if err != nil || coupon != nil {
		t.Fatalf("blank code: got (%+v, %v), want (nil, nil)", coupon, err)
	}
}

func TestService_ResolveScopedToShop(t *testing.T) {
	repo := newStubRepo()
	svc, _ := NewService(repo, nil)
	shopID := uuid.New()

	row := &models.Coupon{ID: uuid.New(), ShopID: shopID, Code: "OFF10", Discount: decimal.NewFromInt(10), IsPercentage: true, IsActive: true}
	repo.coupons[row.ID] = row

	code := "OFF10"
	coupon, err := svc.Resolve(context.Background(), shopID, &code, time.Now())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if coupon == nil || coupon.Code != "OFF10" {
		t.Fatalf("expected OFF10, got %+v", coupon)
	}

	other, err := svc.Resolve(context.Background(), uuid.New(), &code, time.Now())
	if err != nil {
		t.Fatalf("Resolve other shop: %v", err)
	}
	if other != nil {
		t.Fatal("coupon leaked across shops")
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := NewService(newStubRepo(), nil)

	cases := []struct {
		name  string
		input CreateCouponInput
	}{
		{"missing shop", CreateCouponInput{Code: "X", Discount: decimal.NewFromInt(5)}},
		{"blank code", CreateCouponInput{ShopID: uuid.New(), Code: "  ", Discount: decimal.NewFromInt(5)}},
		{"zero discount", CreateCouponInput{ShopID: uuid.New(), Code: "X", Discount: decimal.Zero}},
		{"percentage over 100", CreateCouponInput{ShopID: uuid.New(), Code: "X", Discount: decimal.NewFromInt(120), IsPercentage: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_CreateNormalizesCode(t *testing.T) {
	svc, _ := NewService(newStubRepo(), nil)

	coupon, err := svc.Create(context.Background(), CreateCouponInput{
		ShopID:       uuid.New(),
		Code:         "  welcome5 ",
		Discount:     decimal.NewFromInt(5),
		IsPercentage: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if coupon.Code != strings.ToUpper("welcome5") {
		t.Fatalf("code normalized to %q, want WELCOME5", coupon.Code)
	}
	if !coupon.IsActive {
		t.Fatal("new coupon should start active")
	}
}

func TestService_DeactivateForeignShop(t *testing.T) {
	repo := newStubRepo()
	svc, _ := NewService(repo, nil)
	shopID := uuid.New()

	coupon, err := svc.Create(context.Background(), CreateCouponInput{
		ShopID:   shopID,
		Code:     "OFF5",
		Discount: decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = svc.Deactivate(context.Background(), uuid.New(), coupon.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign shop, got %v", err)
	}

	if err := svc.Deactivate(context.Background(), shopID, coupon.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	code := "OFF5"
	resolved, err := svc.Resolve(context.Background(), shopID, &code, time.Now())
	if err != nil {
		t.Fatalf("Resolve after deactivate: %v", err)
	}
	if resolved != nil {
		t.Fatal("deactivated coupon should not resolve")
	}
}
