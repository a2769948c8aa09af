// Package address manages a customer's saved delivery addresses. One address
// may be flagged default; it is the one checkout preselects.
package address

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/pkg/db/models"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
)

var pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

var addressTypes = map[string]struct{}{
	"home":  {},
	"work":  {},
	"other": {},
}

// Service is the saved-address surface used by the customer API.
type Service interface {
	Create(ctx context.Context, customerID uuid.UUID, input SaveInput) (*models.Address, error)
	Update(ctx context.Context, customerID, id uuid.UUID, input SaveInput) (*models.Address, error)
	Get(ctx context.Context, customerID, id uuid.UUID) (*models.Address, error)
	List(ctx context.Context, customerID uuid.UUID) ([]models.Address, error)
	Delete(ctx context.Context, customerID, id uuid.UUID) error
}

// SaveInput carries the writable address fields.
type SaveInput struct {
	Line1       string
	Locality    *string
	Pincode     string
	Latitude    *float64
	Longitude   *float64
	AddressType string
	IsDefault   bool
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the address service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, customerID uuid.UUID, input SaveInput) (*models.Address, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	normalized, err := validateSaveInput(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	// The first saved address is always the default.
	isDefault := normalized.IsDefault || len(existing) == 0
	if isDefault && len(existing) > 0 {
		if err := s.repo.ClearDefault(ctx, customerID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
		}
	}

	addr := &models.Address{
		CustomerID:  customerID,
		Line1:       normalized.Line1,
		Locality:    normalized.Locality,
		Pincode:     normalized.Pincode,
		Latitude:    normalized.Latitude,
		Longitude:   normalized.Longitude,
		AddressType: normalized.AddressType,
		IsDefault:   isDefault,
	}
	if err := s.repo.Create(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return addr, nil
}

func (s *service) Update(ctx context.Context, customerID, id uuid.UUID, input SaveInput) (*models.Address, error) {
	normalized, err := validateSaveInput(input)
	if err != nil {
		return nil, err
	}

	addr, err := s.repo.FindByID(ctx, customerID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if addr == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}

	if normalized.IsDefault && !addr.IsDefault {
		if err := s.repo.ClearDefault(ctx, customerID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear default address")
		}
	}

	addr.Line1 = normalized.Line1
	addr.Locality = normalized.Locality
	addr.Pincode = normalized.Pincode
	addr.Latitude = normalized.Latitude
	addr.Longitude = normalized.Longitude
	addr.AddressType = normalized.AddressType
	if normalized.IsDefault {
		addr.IsDefault = true
	}
	if err := s.repo.Update(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
	}
	return addr, nil
}

func (s *service) Get(ctx context.Context, customerID, id uuid.UUID) (*models.Address, error) {
	addr, err := s.repo.FindByID(ctx, customerID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if addr == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return addr, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID) ([]models.Address, error) {
	addrs, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return addrs, nil
}

func (s *service) Delete(ctx context.Context, customerID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, customerID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

func validateSaveInput(input SaveInput) (SaveInput, error) {
	input.Line1 = strings.TrimSpace(input.Line1)
	if input.Line1 == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "address line required")
	}
	if !pincodePattern.MatchString(input.Pincode) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid pincode")
	}
	if input.AddressType == "" {
		input.AddressType = "home"
	}
	if _, ok := addressTypes[input.AddressType]; !ok {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "address type must be home, work or other")
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "latitude and longitude must be provided together")
	}
	if input.Latitude != nil {
		if *input.Latitude < -90 || *input.Latitude > 90 || *input.Longitude < -180 || *input.Longitude > 180 {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
		}
	}
	return input, nil
}
