package invoice

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/money"
)

// OrderSource loads the order being invoiced.
type OrderSource interface {
	FindWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// SettlementSource loads the order's settlement, which carries the service
// charge components for townie-ship invoices.
type SettlementSource interface {
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error)
}

// Service builds and persists invoice lines for orders.
type Service interface {
	BuildForOrder(ctx context.Context, orderID uuid.UUID) ([]models.InvoiceLine, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.InvoiceLine, error)
}

type service struct {
	repo        Repository
	orders      OrderSource
	settlements SettlementSource
	logg        *logger.Logger
}

// NewService wires the invoice service.
func NewService(repo Repository, orders OrderSource, settlements SettlementSource, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order source required")
	}
	if settlements == nil {
		return nil, fmt.Errorf("settlement source required")
	}
	return &service{repo: repo, orders: orders, settlements: settlements, logg: logg}, nil
}

// BuildForOrder computes and persists the invoice lines for an order. A
// rebuild request for an already invoiced order returns the existing lines
// untouched.
func (s *service) BuildForOrder(ctx context.Context, orderID uuid.UUID) ([]models.InvoiceLine, error) {
	exists, err := s.repo.ExistsForOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invoice lines")
	}
	if exists {
		return s.ListByOrder(ctx, orderID)
	}

	order, err := s.orders.FindWithItems(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	serviceChargeBase := money.Zero
	if order.DeliveryMode == enums.DeliveryModeTownieShip {
		settlement, err := s.settlements.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement")
		}
		if settlement == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "order not settled yet, invoice deferred")
		}
		serviceChargeBase = settlement.ReferralFee.Add(settlement.TSF)
	}

	lines, err := ComputeTaxLines(order.Items, order.DeliveryCharge, order.DeliveryMode, serviceChargeBase)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if err := s.repo.CreateBatch(ctx, lines); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist invoice lines")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), fmt.Sprintf("invoice built with %d lines", len(lines)))
	}
	return lines, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.InvoiceLine, error) {
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoice lines")
	}
	return rows, nil
}
