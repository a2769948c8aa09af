// Package shops owns vendor storefronts: registration, admin moderation,
// delivery configuration and the customer-facing nearby listing.
package shops

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/outbox"
	"github.com/townielabs/townie-backend/pkg/outbox/payloads"
)

// Service is the shop management surface.
type Service interface {
	Register(ctx context.Context, input RegisterShopInput) (*models.Shop, error)
	GetShop(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	GetShopByUser(ctx context.Context, userID uuid.UUID) (*models.Shop, error)
	SetAvailability(ctx context.Context, shopID uuid.UUID, available bool) error
	Moderate(ctx context.Context, input ModerateShopInput) (*models.Shop, error)
	ListPending(ctx context.Context, limit int) ([]models.Shop, error)
	UpsertDeliveryOption(ctx context.Context, input DeliveryOptionInput) (*models.DeliveryOption, error)
	FindDeliveryOption(ctx context.Context, shopID uuid.UUID) (*models.DeliveryOption, error)
	Nearby(ctx context.Context, lat, lng float64, radiusKM float64) ([]NearbyShop, error)
	Categories(ctx context.Context) ([]models.ShopCategory, error)
}

// RegisterShopInput is the vendor's storefront application.
type RegisterShopInput struct {
	UserID       uuid.UUID
	CategoryID   *uuid.UUID
	ShopName     string
	BusinessName *string
	GSTNumber    *string
	Description  *string
	Address      string
	Locality     *string
	Pincode      string
	Latitude     float64
	Longitude    float64
	OpeningTime  *string
	ClosingTime  *string
}

// ModerateShopInput is an admin approve/reject decision.
type ModerateShopInput struct {
	ShopID  uuid.UUID
	AdminID uuid.UUID
	Approve bool
	Reason  string
}

// DeliveryOptionInput is the vendor's delivery configuration.
type DeliveryOptionInput struct {
	ShopID                uuid.UUID
	Modes                 []string
	DeliveryCharge        *decimal.Decimal
	FreeDeliveryThreshold *decimal.Decimal
	ServiceWindowEnd      *string
	DeliveryRadiusKM      *float64
}

// NearbyShop is a listing row with its distance from the caller.
type NearbyShop struct {
	Shop       models.Shop
	DistanceKM float64
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events to the transactional outbox.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo    Repository
	tx      TxRunner
	events  EventEmitter
	pricing config.PricingConfig
	logg    *logger.Logger
}

// NewService wires the shop service.
func NewService(repo Repository, tx TxRunner, events EventEmitter, pricing config.PricingConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{repo: repo, tx: tx, events: events, pricing: pricing, logg: logg}, nil
}

func (s *service) Register(ctx context.Context, input RegisterShopInput) (*models.Shop, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	name := strings.TrimSpace(input.ShopName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name is required")
	}
	if strings.TrimSpace(input.Address) == "" || strings.TrimSpace(input.Pincode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address and pincode are required")
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}

	existing, err := s.repo.FindByUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup shop")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has a shop")
	}

	shop := &models.Shop{
		UserID:       input.UserID,
		CategoryID:   input.CategoryID,
		ShopName:     name,
		BusinessName: input.BusinessName,
		GSTNumber:    input.GSTNumber,
		Description:  input.Description,
		Address:      strings.TrimSpace(input.Address),
		Locality:     input.Locality,
		Pincode:      strings.TrimSpace(input.Pincode),
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		OpeningTime:  input.OpeningTime,
		ClosingTime:  input.ClosingTime,
		Status:       enums.ShopStatusPending,
		Available:    true,
	}
	if err := s.repo.Create(ctx, shop); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shop")
	}
	return shop, nil
}

func (s *service) GetShop(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	shop, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup shop")
	}
	if shop == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	return shop, nil
}

func (s *service) GetShopByUser(ctx context.Context, userID uuid.UUID) (*models.Shop, error) {
	shop, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup shop")
	}
	if shop == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	return shop, nil
}

func (s *service) SetAvailability(ctx context.Context, shopID uuid.UUID, available bool) error {
	shop, err := s.GetShop(ctx, shopID)
	if err != nil {
		return err
	}
	shop.Available = available
	if err := s.repo.Update(ctx, shop); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop availability")
	}
	return nil
}

// Moderate applies an admin decision on a pending shop and emits the
// moderation event in the same transaction.
func (s *service) Moderate(ctx context.Context, input ModerateShopInput) (*models.Shop, error) {
	shop, err := s.GetShop(ctx, input.ShopID)
	if err != nil {
		return nil, err
	}
	if shop.Status != enums.ShopStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "shop is not pending moderation")
	}

	status := enums.ShopStatusRejected
	eventType := enums.EventShopRejected
	if input.Approve {
		status = enums.ShopStatusApproved
		eventType = enums.EventShopApproved
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateStatusTx(ctx, tx, shop.ID, status); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateShop,
			AggregateID:   shop.ID,
			Actor:         &outbox.ActorRef{UserID: input.AdminID, Role: string(enums.UserRoleAdmin)},
			Data: payloads.ShopModeratedEvent{
				ShopID: shop.ID,
				Status: status,
				Reason: input.Reason,
			},
			Version:    1,
			OccurredAt: time.Now(),
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "moderate shop")
	}

	shop.Status = status
	if s.logg != nil {
		s.logg.Info(s.logg.WithShopID(ctx, shop.ID.String()), fmt.Sprintf("shop moderated to %s", status))
	}
	return shop, nil
}

func (s *service) ListPending(ctx context.Context, limit int) ([]models.Shop, error) {
	rows, err := s.repo.ListByStatus(ctx, enums.ShopStatusPending, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending shops")
	}
	return rows, nil
}

func (s *service) UpsertDeliveryOption(ctx context.Context, input DeliveryOptionInput) (*models.DeliveryOption, error) {
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	if len(input.Modes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one delivery mode is required")
	}
	for _, raw := range input.Modes {
		if _, err := enums.ParseDeliveryMode(raw); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery mode %q", raw))
		}
	}
	if input.DeliveryCharge != nil && input.DeliveryCharge.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery charge must not be negative")
	}
	if input.FreeDeliveryThreshold != nil && input.FreeDeliveryThreshold.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "free delivery threshold must not be negative")
	}
	if input.ServiceWindowEnd != nil {
		if _, err := time.Parse("15:04", *input.ServiceWindowEnd); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "service window end must be HH:MM")
		}
	}

	option := &models.DeliveryOption{
		ShopID:                input.ShopID,
		Modes:                 pq.StringArray(input.Modes),
		DeliveryCharge:        input.DeliveryCharge,
		FreeDeliveryThreshold: input.FreeDeliveryThreshold,
		ServiceWindowEnd:      input.ServiceWindowEnd,
		DeliveryRadiusKM:      input.DeliveryRadiusKM,
	}
	if err := s.repo.UpsertDeliveryOption(ctx, option); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert delivery option")
	}
	return option, nil
}

func (s *service) FindDeliveryOption(ctx context.Context, shopID uuid.UUID) (*models.DeliveryOption, error) {
	option, err := s.repo.FindDeliveryOption(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup delivery option")
	}
	return option, nil
}

func (s *service) Categories(ctx context.Context) ([]models.ShopCategory, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop categories")
	}
	return rows, nil
}

// Nearby lists approved, available shops within the radius, closest first.
// A non-positive radius falls back to the configured base radius.
func (s *service) Nearby(ctx context.Context, lat, lng, radiusKM float64) ([]NearbyShop, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	if radiusKM <= 0 {
		radiusKM = s.pricing.ShopBaseRadiusKM
	}

	minLat, maxLat, minLng, maxLng := boundingBox(lat, lng, radiusKM)
	candidates, err := s.repo.ListApprovedInBox(ctx, minLat, maxLat, minLng, maxLng)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list nearby shops")
	}

	results := make([]NearbyShop, 0, len(candidates))
	for _, shop := range candidates {
		distance := DistanceKM(lat, lng, shop.Latitude, shop.Longitude)
		if distance <= radiusKM {
			results = append(results, NearbyShop{Shop: shop, DistanceKM: distance})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].DistanceKM < results[j].DistanceKM })
	return results, nil
}
