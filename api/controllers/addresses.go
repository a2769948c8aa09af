package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/address"
	"github.com/townielabs/townie-backend/pkg/db/models"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
)

type addressRequest struct {
	Line1       string   `json:"line1" validate:"required"`
	Locality    *string  `json:"locality"`
	Pincode     string   `json:"pincode" validate:"required"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	AddressType string   `json:"address_type"`
	IsDefault   bool     `json:"is_default"`
}

type addressResponse struct {
	ID          uuid.UUID `json:"id"`
	Line1       string    `json:"line1"`
	Locality    *string   `json:"locality,omitempty"`
	Pincode     string    `json:"pincode"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	AddressType string    `json:"address_type"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

func newAddressResponse(addr models.Address) addressResponse {
	return addressResponse{
		ID:          addr.ID,
		Line1:       addr.Line1,
		Locality:    addr.Locality,
		Pincode:     addr.Pincode,
		Latitude:    addr.Latitude,
		Longitude:   addr.Longitude,
		AddressType: addr.AddressType,
		IsDefault:   addr.IsDefault,
		CreatedAt:   addr.CreatedAt,
	}
}

func (req addressRequest) toSaveInput() address.SaveInput {
	return address.SaveInput{
		Line1:       req.Line1,
		Locality:    req.Locality,
		Pincode:     req.Pincode,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		AddressType: req.AddressType,
		IsDefault:   req.IsDefault,
	}
}

// AddressList returns the caller's saved addresses, default first.
func AddressList(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]addressResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newAddressResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

// AddressCreate saves a new delivery address for the caller.
func AddressCreate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req addressRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), customerID, req.toSaveInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAddressResponse(*created))
	}
}

// AddressUpdate rewrites an existing address owned by the caller.
func AddressUpdate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := pathUUID(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req addressRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), customerID, addressID, req.toSaveInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAddressResponse(*updated))
	}
}

// AddressDelete removes an address owned by the caller.
func AddressDelete(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := pathUUID(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), customerID, addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
