package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/internal/pricing"
	"github.com/townielabs/townie-backend/pkg/db/models"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type stubRepo struct {
	products map[uuid.UUID]*models.Product
	stock    map[uuid.UUID]int
}

func newStubRepo() *stubRepo {
	return &stubRepo{products: map[uuid.UUID]*models.Product{}, stock: map[uuid.UUID]int{}}
}

func (r *stubRepo) FindProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	return r.products[id], nil
}

func (r *stubRepo) FindVariant(_ context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	for _, p := range r.products {
		for i := range p.Variants {
			if p.Variants[i].ID == id {
				return &p.Variants[i], nil
			}
		}
	}
	return nil, nil
}

func (r *stubRepo) CreateProduct(_ context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	for i := range product.Variants {
		if product.Variants[i].ID == uuid.Nil {
			product.Variants[i].ID = uuid.New()
		}
	}
	r.products[product.ID] = product
	return nil
}

func (r *stubRepo) UpdateProduct(_ context.Context, product *models.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *stubRepo) SetProductActive(_ context.Context, id uuid.UUID, active bool) error {
	if p, ok := r.products[id]; ok {
		p.IsActive = active
	}
	return nil
}

func (r *stubRepo) ListByShop(_ context.Context, shopID uuid.UUID, _ pagination.Params) ([]models.Product, error) {
	var rows []models.Product
	for _, p := range r.products {
		if p.ShopID == shopID && p.IsActive {
			rows = append(rows, *p)
		}
	}
	return rows, nil
}

func (r *stubRepo) SearchByShop(ctx context.Context, shopID uuid.UUID, _ string, params pagination.Params) ([]models.Product, error) {
	return r.ListByShop(ctx, shopID, params)
}

func (r *stubRepo) DecrementStock(_ context.Context, _ *gorm.DB, productID uuid.UUID, variantID *uuid.UUID, quantity int) error {
	key := productID
	if variantID != nil {
		key = *variantID
	}
	if r.stock[key] < quantity {
		return fmt.Errorf("stock decrement rejected for product %s", productID)
	}
	r.stock[key] -= quantity
	return nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestSnapshot_ProductAndVariant(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	variantID := uuid.New()
	product := &models.Product{
		ID:       uuid.New(),
		ShopID:   uuid.New(),
		Name:     "Tea",
		MRP:      dec("100"),
		TaxRate:  5,
		Quantity: 10,
		IsActive: true,
		Variants: []models.ProductVariant{
			{ID: variantID, Name: "500g", MRP: dec("180"), Quantity: 4, IsActive: true},
		},
	}
	repo.products[product.ID] = product

	snap, err := svc.Snapshot(context.Background(), pricing.ItemRef{ProductID: product.ID})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap == nil || !snap.MRP.Equal(dec("100")) || snap.QuantityOnHand != 10 {
		t.Fatalf("product snapshot = %+v", snap)
	}

	snap, err = svc.Snapshot(context.Background(), pricing.ItemRef{ProductID: product.ID, VariantID: &variantID})
	if err != nil {
		t.Fatalf("variant Snapshot: %v", err)
	}
	if snap == nil || !snap.MRP.Equal(dec("180")) || snap.QuantityOnHand != 4 {
		t.Fatalf("variant snapshot = %+v", snap)
	}
	if snap.TaxRate != product.TaxRate {
		t.Fatalf("variant tax rate = %d, want inherited %d", snap.TaxRate, product.TaxRate)
	}
	if snap.Name != "Tea 500g" {
		t.Fatalf("variant name = %q", snap.Name)
	}
}

func TestSnapshot_InactiveAndUnknownResolveToNil(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	inactive := &models.Product{ID: uuid.New(), ShopID: uuid.New(), Name: "Old", MRP: dec("10"), IsActive: false}
	repo.products[inactive.ID] = inactive

	snap, err := svc.Snapshot(context.Background(), pricing.ItemRef{ProductID: inactive.ID})
	if err != nil || snap != nil {
		t.Fatalf("inactive product: got (%+v, %v), want (nil, nil)", snap, err)
	}
	snap, err = svc.Snapshot(context.Background(), pricing.ItemRef{ProductID: uuid.New()})
	if err != nil || snap != nil {
		t.Fatalf("unknown product: got (%+v, %v), want (nil, nil)", snap, err)
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	cases := []struct {
		name  string
		input CreateProductInput
	}{
		{"missing shop", CreateProductInput{Name: "X", MRP: dec("10"), TaxRate: 5}},
		{"blank name", CreateProductInput{ShopID: uuid.New(), Name: " ", MRP: dec("10"), TaxRate: 5}},
		{"zero mrp", CreateProductInput{ShopID: uuid.New(), Name: "X", MRP: decimal.Zero, TaxRate: 5}},
		{"bad tax rate", CreateProductInput{ShopID: uuid.New(), Name: "X", MRP: dec("10"), TaxRate: 7}},
		{"half band", CreateProductInput{ShopID: uuid.New(), Name: "X", MRP: dec("10"), TaxRate: 5, LowestSellingRate: decPtr("5")}},
		{"inverted band", CreateProductInput{ShopID: uuid.New(), Name: "X", MRP: dec("10"), TaxRate: 5, LowestSellingRate: decPtr("9"), HighestSellingRate: decPtr("5")}},
		{"negative quantity", CreateProductInput{ShopID: uuid.New(), Name: "X", MRP: dec("10"), TaxRate: 5, Quantity: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateProduct_ForeignShop(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	product := &models.Product{ID: uuid.New(), ShopID: uuid.New(), Name: "Tea", MRP: dec("100"), TaxRate: 5, IsActive: true}
	repo.products[product.ID] = product

	newName := "Renamed"
	_, err := svc.UpdateProduct(context.Background(), uuid.New(), product.ID, UpdateProductInput{Name: &newName})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign shop, got %v", err)
	}
}

func TestApplyDecrements(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	productID := uuid.New()
	repo.stock[productID] = 3

	items := []models.OrderItem{{ProductID: productID, Name: "Tea", Quantity: 2}}
	if err := svc.ApplyDecrements(context.Background(), nil, items); err != nil {
		t.Fatalf("ApplyDecrements: %v", err)
	}
	if repo.stock[productID] != 1 {
		t.Fatalf("stock = %d, want 1", repo.stock[productID])
	}

	err := svc.ApplyDecrements(context.Background(), nil, []models.OrderItem{{ProductID: productID, Name: "Tea", Quantity: 2}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}
