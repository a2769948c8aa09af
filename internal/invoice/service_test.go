package invoice

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
)

type stubRepo struct {
	lines   []models.InvoiceLine
	batches int
}

func (r *stubRepo) ExistsForOrder(_ context.Context, orderID uuid.UUID) (bool, error) {
	for _, l := range r.lines {
		if l.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubRepo) CreateBatch(_ context.Context, lines []models.InvoiceLine) error {
	r.batches++
	r.lines = append(r.lines, lines...)
	return nil
}

func (r *stubRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.InvoiceLine, error) {
	var rows []models.InvoiceLine
	for _, l := range r.lines {
		if l.OrderID == orderID {
			rows = append(rows, l)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	return rows, nil
}

type stubOrders struct {
	orders map[uuid.UUID]*models.Order
}

func (s *stubOrders) FindWithItems(_ context.Context, id uuid.UUID) (*models.Order, error) {
	return s.orders[id], nil
}

type stubSettlements struct {
	rows map[uuid.UUID]*models.Settlement
}

func (s *stubSettlements) FindByOrderID(_ context.Context, orderID uuid.UUID) (*models.Settlement, error) {
	return s.rows[orderID], nil
}

func testOrder(mode enums.DeliveryMode) *models.Order {
	return &models.Order{
		ID:           uuid.New(),
		ShopID:       uuid.New(),
		DeliveryMode: mode,
		Items:        []models.OrderItem{item("Rice 5kg", 2, "100", enums.TaxRate5)},
	}
}

func newTestService(t *testing.T, repo *stubRepo, orders *stubOrders, settlements *stubSettlements) Service {
	t.Helper()
	if settlements == nil {
		settlements = &stubSettlements{rows: map[uuid.UUID]*models.Settlement{}}
	}
	svc, err := NewService(repo, orders, settlements, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestBuildForOrder_PersistsOnce(t *testing.T) {
	order := testOrder(enums.DeliveryModePickup)
	repo := &stubRepo{}
	svc := newTestService(t, repo, &stubOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}}, nil)

	first, err := svc.BuildForOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := svc.BuildForOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if repo.batches != 1 {
		t.Fatalf("batches = %d, want 1", repo.batches)
	}
	if len(first) != len(second) {
		t.Fatalf("rebuild returned %d lines, first build had %d", len(second), len(first))
	}
	for _, l := range first {
		if l.OrderID != order.ID {
			t.Fatalf("line missing order id: %+v", l)
		}
	}
}

func TestBuildForOrder_TownieShipNeedsSettlement(t *testing.T) {
	order := testOrder(enums.DeliveryModeTownieShip)
	svc := newTestService(t, &stubRepo{}, &stubOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}}, nil)

	_, err := svc.BuildForOrder(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected deferred invoice before settlement, got %v", err)
	}
}

func TestBuildForOrder_TownieShipServiceChargeFromSettlement(t *testing.T) {
	order := testOrder(enums.DeliveryModeTownieShip)
	settlements := &stubSettlements{rows: map[uuid.UUID]*models.Settlement{
		order.ID: {OrderID: order.ID, ReferralFee: dec("4.72"), TSF: dec("25")},
	}}
	svc := newTestService(t, &stubRepo{}, &stubOrders{orders: map[uuid.UUID]*models.Order{order.ID: order}}, settlements)

	lines, err := svc.BuildForOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("BuildForOrder: %v", err)
	}
	service := lineByName(t, lines, "Service charge")
	if !service.LineTotal.Equal(dec("29.72")) {
		t.Fatalf("service charge base = %s, want referral + tsf = 29.72", service.LineTotal)
	}
}

func TestBuildForOrder_OrderNotFound(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubOrders{orders: map[uuid.UUID]*models.Order{}}, nil)

	_, err := svc.BuildForOrder(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
