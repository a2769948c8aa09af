package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/config"
	dbpkg "github.com/townielabs/townie-backend/pkg/db"
	"github.com/townielabs/townie-backend/pkg/db/models"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/metrics"
)

// OrderSource loads the order under settlement.
type OrderSource interface {
	FindWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// OptionSource loads the shop's delivery option.
type OptionSource interface {
	FindDeliveryOption(ctx context.Context, shopID uuid.UUID) (*models.DeliveryOption, error)
}

// Service computes and persists commission splits.
type Service interface {
	SettleOrder(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]models.Settlement, error)
}

type service struct {
	repo    Repository
	orders  OrderSource
	options OptionSource
	pricing config.PricingConfig
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

// NewService wires the settlement service.
func NewService(repo Repository, orders OrderSource, options OptionSource, pricing config.PricingConfig, logg *logger.Logger, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order source required")
	}
	if options == nil {
		return nil, fmt.Errorf("delivery option source required")
	}
	return &service{repo: repo, orders: orders, options: options, pricing: pricing, logg: logg, metrics: m}, nil
}

// SettleOrder computes the commission split for an order exactly once. A
// second call, or a concurrent worker racing on the same order, returns the
// already persisted row.
func (s *service) SettleOrder(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error) {
	if existing, err := s.repo.FindByOrderID(ctx, orderID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup settlement")
	} else if existing != nil {
		s.metrics.IncSettlement("already_settled")
		return existing, nil
	}

	order, err := s.orders.FindWithItems(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	option, err := s.options.FindDeliveryOption(ctx, order.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery option")
	}

	split := Compute(mrpTotal(order.Items), order.DeliveryMode, option, s.pricing)
	row := &models.Settlement{
		OrderID:        order.ID,
		DeliveryMode:   order.DeliveryMode,
		TotalCost:      split.TotalCost,
		ReferralFee:    split.ReferralFee,
		TCS:            split.TCS,
		TDR:            split.TDR,
		TSF:            split.TSF,
		PlatformAmount: split.PlatformAmount,
		VendorAmount:   split.VendorAmount,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_settlements_order_id") {
			s.metrics.IncSettlement("already_settled")
			return s.repo.FindByOrderID(ctx, orderID)
		}
		s.metrics.IncSettlement("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist settlement")
	}

	s.metrics.IncSettlement("settled")
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()),
			fmt.Sprintf("order settled: platform %s, vendor %s of %s", split.PlatformAmount, split.VendorAmount, split.TotalCost))
	}
	return row, nil
}

func (s *service) ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]models.Settlement, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	rows, err := s.repo.ListByShop(ctx, shopID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlements")
	}
	return rows, nil
}

// mrpTotal is the split base: the undiscounted MRP value of the order.
func mrpTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitMRP.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
