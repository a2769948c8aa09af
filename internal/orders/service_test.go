package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/internal/pricing"
	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/outbox"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type stubRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubRepo() *stubRepo {
	return &stubRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (r *stubRepo) CreateTx(_ context.Context, _ *gorm.DB, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.OrderNumber = int64(len(r.orders) + 1)
	r.orders[order.ID] = order
	return nil
}

func (r *stubRepo) FindWithItems(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := r.orders[id]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, nil
}

func (r *stubRepo) UpdateTx(_ context.Context, _ *gorm.DB, order *models.Order) error {
	r.orders[order.ID] = order
	return nil
}

func (r *stubRepo) ClaimStockApplicationTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (bool, error) {
	order, ok := r.orders[id]
	if !ok || order.StockApplied {
		return false, nil
	}
	order.StockApplied = true
	return true, nil
}

func (r *stubRepo) FindPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range r.orders {
		if order.Status == enums.OrderStatusPending && order.CreatedAt.Before(cutoff) && len(rows) < limit {
			rows = append(rows, *order)
		}
	}
	return rows, nil
}

func (r *stubRepo) ExpirePendingTx(_ context.Context, _ *gorm.DB, id uuid.UUID, canceledAt time.Time) (bool, error) {
	order, ok := r.orders[id]
	if !ok || order.Status != enums.OrderStatusPending {
		return false, nil
	}
	order.Status = enums.OrderStatusCanceled
	order.CanceledAt = &canceledAt
	return true, nil
}

func (r *stubRepo) ListByCustomer(_ context.Context, customerID uuid.UUID, _ pagination.Params) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range r.orders {
		if order.CustomerID == customerID {
			rows = append(rows, *order)
		}
	}
	return rows, nil
}

func (r *stubRepo) ListByShop(_ context.Context, shopID uuid.UUID, status *enums.OrderStatus, _ pagination.Params) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range r.orders {
		if order.ShopID != shopID {
			continue
		}
		if status != nil && order.Status != *status {
			continue
		}
		rows = append(rows, *order)
	}
	return rows, nil
}

func (r *stubRepo) ListRecent(_ context.Context, status *enums.OrderStatus, _ pagination.Params) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range r.orders {
		if status != nil && order.Status != *status {
			continue
		}
		rows = append(rows, *order)
	}
	return rows, nil
}

type stubShops struct {
	shop   *models.Shop
	option *models.DeliveryOption
}

func (s *stubShops) FindByID(_ context.Context, id uuid.UUID) (*models.Shop, error) {
	if s.shop != nil && s.shop.ID == id {
		return s.shop, nil
	}
	return nil, nil
}

func (s *stubShops) FindDeliveryOption(_ context.Context, _ uuid.UUID) (*models.DeliveryOption, error) {
	return s.option, nil
}

type stubCatalog struct {
	snapshots   map[uuid.UUID]*pricing.ItemSnapshot
	decremented map[uuid.UUID]int
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		snapshots:   map[uuid.UUID]*pricing.ItemSnapshot{},
		decremented: map[uuid.UUID]int{},
	}
}

func (c *stubCatalog) Snapshot(_ context.Context, ref pricing.ItemRef) (*pricing.ItemSnapshot, error) {
	return c.snapshots[ref.ProductID], nil
}

func (c *stubCatalog) ApplyDecrements(_ context.Context, _ *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		c.decremented[item.ProductID] += item.Quantity
	}
	return nil
}

type stubCoupons struct {
	coupon *models.Coupon
}

func (s *stubCoupons) Resolve(_ context.Context, _ uuid.UUID, code *string, _ time.Time) (*models.Coupon, error) {
	if code == nil || s.coupon == nil {
		return nil, nil
	}
	return s.coupon, nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (e *stubEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	e.events = append(e.events, event)
	return nil
}

func (e *stubEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range e.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return e.Emit(ctx, tx, event)
}

func (e *stubEmitter) countByType(eventType enums.OutboxEventType) int {
	count := 0
	for _, event := range e.events {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

type fixture struct {
	repo    *stubRepo
	shops   *stubShops
	catalog *stubCatalog
	coupons *stubCoupons
	emitter *stubEmitter
	svc     Service
	shopID  uuid.UUID
}

func testPricing() config.PricingConfig {
	return config.PricingConfig{
		TownieShipCharge: dec("20"),
		ReferralPct:      dec("0.02"),
		PaymentGwPct:     dec("0.0236"),
		TSFRate:          dec("0.0236"),
		TSFMinimum:       dec("25"),
		TCSRate:          dec("0.00990099"),
		ShopBaseRadiusKM: 5,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newStubRepo(),
		catalog: newStubCatalog(),
		coupons: &stubCoupons{},
		emitter: &stubEmitter{},
	}
	shopID := uuid.New()
	f.shopID = shopID
	f.shops = &stubShops{
		shop: &models.Shop{ID: shopID, ShopName: "Fresh Mart", Status: enums.ShopStatusApproved, Available: true},
	}
	svc, err := NewService(f.repo, f.shops, f.catalog, f.coupons, stubTx{}, f.emitter, testPricing(), nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) addProduct(mrp string, quantity int) uuid.UUID {
	id := uuid.New()
	f.catalog.snapshots[id] = &pricing.ItemSnapshot{
		Ref:            pricing.ItemRef{ProductID: id},
		Name:           "Product",
		MRP:            dec(mrp),
		TaxRate:        enums.TaxRate5,
		QuantityOnHand: quantity,
	}
	return id
}

func (f *fixture) placeInput(lines ...CartLineInput) PlaceOrderInput {
	return PlaceOrderInput{
		CustomerID:   uuid.New(),
		ShopID:       f.shopID,
		DeliveryMode: "pickup",
		Lines:        lines,
	}
}

func TestPlaceOrder_PickupScenario(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("100", 10)

	order, err := f.svc.PlaceOrder(context.Background(), f.placeInput(CartLineInput{ProductID: productID, Quantity: 2}))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !order.Subtotal.Equal(dec("200")) {
		t.Fatalf("subtotal = %s, want 200", order.Subtotal)
	}
	if !order.DeliveryCharge.IsZero() {
		t.Fatalf("delivery charge = %s, want 0 for pickup", order.DeliveryCharge)
	}
	if !order.GrandTotal.Equal(dec("200")) {
		t.Fatalf("grand total = %s, want 200", order.GrandTotal)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if len(order.VendorOTP) != 4 || len(order.CustomerOTP) != 4 {
		t.Fatalf("otp lengths = %d/%d, want 4-digit codes", len(order.VendorOTP), len(order.CustomerOTP))
	}
	if f.emitter.countByType(enums.EventOrderCreated) != 1 {
		t.Fatalf("events = %+v, want one order_created", f.emitter.events)
	}
}

func TestPlaceOrder_TownieShipUnderThreshold(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("40", 5)
	f.shops.option = &models.DeliveryOption{FreeDeliveryThreshold: decPtr("100")}

	input := f.placeInput(CartLineInput{ProductID: productID, Quantity: 1})
	input.DeliveryMode = "townie_ship"

	order, err := f.svc.PlaceOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !order.DeliveryCharge.Equal(dec("20")) {
		t.Fatalf("delivery charge = %s, want the configured flat 20", order.DeliveryCharge)
	}
	if !order.GrandTotal.Equal(dec("60")) {
		t.Fatalf("grand total = %s, want 60", order.GrandTotal)
	}
}

func TestPlaceOrder_PercentageCoupon(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("100", 10)
	code := "OFF10"
	f.coupons.coupon = &models.Coupon{ShopID: f.shopID, Code: code, Discount: dec("10"), IsPercentage: true, IsActive: true}

	input := f.placeInput(CartLineInput{ProductID: productID, Quantity: 2})
	input.CouponCode = &code

	order, err := f.svc.PlaceOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !order.Discount.Equal(dec("20")) {
		t.Fatalf("discount = %s, want 20", order.Discount)
	}
	if !order.GrandTotal.Equal(dec("180")) {
		t.Fatalf("grand total = %s, want 180", order.GrandTotal)
	}
	if order.CouponCode == nil || *order.CouponCode != code {
		t.Fatalf("coupon code = %v, want %s", order.CouponCode, code)
	}
}

func TestPlaceOrder_InsufficientStockAborts(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("100", 1)

	_, err := f.svc.PlaceOrder(context.Background(), f.placeInput(CartLineInput{ProductID: productID, Quantity: 3}))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	detail, ok := typed.Details().(pricing.InsufficientStockDetail)
	if !ok || detail.QuantityLeft != 1 {
		t.Fatalf("details = %+v, want quantity_left 1", typed.Details())
	}
	if len(f.repo.orders) != 0 {
		t.Fatal("no order may be created on stock failure")
	}
}

func TestPlaceOrder_ShopNotAccepting(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("100", 10)
	f.shops.shop.Available = false

	_, err := f.svc.PlaceOrder(context.Background(), f.placeInput(CartLineInput{ProductID: productID, Quantity: 1}))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unavailable shop, got %v", err)
	}
}

func TestPlaceOrder_DeliveryConfigFailureMarksPending(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("40", 5)
	f.shops.option = &models.DeliveryOption{}

	svc, err := NewService(f.repo, f.shops, f.catalog, f.coupons, stubTx{}, f.emitter,
		config.PricingConfig{}, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	input := f.placeInput(CartLineInput{ProductID: productID, Quantity: 1})
	input.DeliveryMode = "townie_ship"

	order, err := svc.PlaceOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("config failure must not abort checkout: %v", err)
	}
	if !order.ChargePending {
		t.Fatal("order should be marked charge pending")
	}
	if !order.DeliveryCharge.IsZero() {
		t.Fatalf("delivery charge = %s, want 0 while pending", order.DeliveryCharge)
	}
	if !order.GrandTotal.Equal(dec("40")) {
		t.Fatalf("grand total = %s, want subtotal only", order.GrandTotal)
	}
}

func TestAcceptAndStockDecrement_Idempotent(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("100", 10)

	order, err := f.svc.PlaceOrder(context.Background(), f.placeInput(CartLineInput{ProductID: productID, Quantity: 2}))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	accepted, err := f.svc.Accept(context.Background(), f.shopID, order.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != enums.OrderStatusAccepted || accepted.AcceptedAt == nil {
		t.Fatalf("accepted = %+v", accepted)
	}
	if f.emitter.countByType(enums.EventOrderAccepted) != 1 {
		t.Fatal("want one order_accepted event")
	}

	// simulate the worker handling the accept event twice
	if err := f.svc.ApplyStockDecrement(context.Background(), order.ID); err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	if err := f.svc.ApplyStockDecrement(context.Background(), order.ID); err != nil {
		t.Fatalf("second decrement: %v", err)
	}
	if f.catalog.decremented[productID] != 2 {
		t.Fatalf("decremented %d units, want 2 exactly once", f.catalog.decremented[productID])
	}
}

func TestAccept_OnlyPending(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("100", 10)

	order, _ := f.svc.PlaceOrder(context.Background(), f.placeInput(CartLineInput{ProductID: productID, Quantity: 1}))
	if _, err := f.svc.Accept(context.Background(), f.shopID, order.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	_, err := f.svc.Accept(context.Background(), f.shopID, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double accept, got %v", err)
	}
}

func TestMarkDelivered_OTPGuard(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("100", 10)

	order, _ := f.svc.PlaceOrder(context.Background(), f.placeInput(CartLineInput{ProductID: productID, Quantity: 1}))
	if _, err := f.svc.Accept(context.Background(), f.shopID, order.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	_, err := f.svc.MarkDelivered(context.Background(), f.shopID, order.ID, "0000x")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected otp mismatch, got %v", err)
	}

	stored := f.repo.orders[order.ID]
	delivered, err := f.svc.MarkDelivered(context.Background(), f.shopID, order.ID, stored.CustomerOTP)
	if err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if delivered.Status != enums.OrderStatusDelivered || delivered.DeliveredAt == nil {
		t.Fatalf("delivered = %+v", delivered)
	}
	if delivered.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid on cash handoff", delivered.PaymentStatus)
	}
}

func TestCancel_ScopedToCustomerAndPending(t *testing.T) {
	f := newFixture(t)
	productID := f.addProduct("100", 10)

	input := f.placeInput(CartLineInput{ProductID: productID, Quantity: 1})
	order, _ := f.svc.PlaceOrder(context.Background(), input)

	_, err := f.svc.Cancel(context.Background(), uuid.New(), order.ID, "changed my mind")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign customer, got %v", err)
	}

	canceled, err := f.svc.Cancel(context.Background(), input.CustomerID, order.ID, "changed my mind")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != enums.OrderStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("canceled = %+v", canceled)
	}

	_, err = f.svc.Cancel(context.Background(), input.CustomerID, order.ID, "again")
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double cancel, got %v", err)
	}
}
