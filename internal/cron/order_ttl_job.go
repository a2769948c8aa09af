package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/outbox"
	"github.com/townielabs/townie-backend/pkg/outbox/payloads"
)

const (
	pendingOrderMaxAge   = 24 * time.Hour
	pendingOrderBatch    = 200
	pendingExpiredReason = "not accepted by the shop in time"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type pendingOrderRepo interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	ExpirePendingTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, canceledAt time.Time) (bool, error)
}

// OrderTTLJobParams configure the stale pending order sweeper.
type OrderTTLJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Orders pendingOrderRepo
	Outbox outboxEmitter
	MaxAge time.Duration
}

// NewOrderTTLJob builds the cron job that cancels orders no shop acted on.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = pendingOrderMaxAge
	}
	return &orderTTLJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	db     txRunner
	orders pendingOrderRepo
	outbox outboxEmitter
	maxAge time.Duration
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	stale, err := j.orders.FindPendingBefore(ctx, cutoff, pendingOrderBatch)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	expired := 0
	for _, order := range stale {
		canceled, err := j.expireOrder(ctx, order)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if canceled {
			expired++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stale":   len(stale),
		"expired": expired,
	})
	j.logg.Info(logCtx, "pending order sweep complete")
	return multierr.Combine(errs...)
}

func (j *orderTTLJob) expireOrder(ctx context.Context, order models.Order) (bool, error) {
	now := j.now().UTC()
	canceled := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.orders.ExpirePendingTx(ctx, tx, order.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// The shop accepted or the customer canceled since the query ran.
			return nil
		}
		canceled = true
		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				ShopID:     order.ShopID,
				CanceledAt: now,
				Reason:     pendingExpiredReason,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return canceled, nil
}
