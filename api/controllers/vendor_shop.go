package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/shops"
	"github.com/townielabs/townie-backend/pkg/db/models"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
)

type registerShopRequest struct {
	CategoryID   *uuid.UUID `json:"category_id"`
	ShopName     string     `json:"shop_name" validate:"required"`
	BusinessName *string    `json:"business_name"`
	GSTNumber    *string    `json:"gst_number"`
	Description  *string    `json:"description"`
	Address      string     `json:"address" validate:"required"`
	Locality     *string    `json:"locality"`
	Pincode      string     `json:"pincode" validate:"required"`
	Latitude     float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64    `json:"longitude" validate:"gte=-180,lte=180"`
	OpeningTime  *string    `json:"opening_time"`
	ClosingTime  *string    `json:"closing_time"`
}

type setAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

type deliveryOptionRequest struct {
	Modes                 []string         `json:"modes" validate:"required,min=1"`
	DeliveryCharge        *decimal.Decimal `json:"delivery_charge"`
	FreeDeliveryThreshold *decimal.Decimal `json:"free_delivery_threshold"`
	ServiceWindowEnd      *string          `json:"service_window_end"`
	DeliveryRadiusKM      *float64         `json:"delivery_radius_km"`
}

type deliveryOptionResponse struct {
	ShopID                uuid.UUID        `json:"shop_id"`
	Modes                 []string         `json:"modes"`
	DeliveryCharge        *decimal.Decimal `json:"delivery_charge,omitempty"`
	FreeDeliveryThreshold *decimal.Decimal `json:"free_delivery_threshold,omitempty"`
	ServiceWindowEnd      *string          `json:"service_window_end,omitempty"`
	DeliveryRadiusKM      *float64         `json:"delivery_radius_km,omitempty"`
}

func newDeliveryOptionResponse(option models.DeliveryOption) deliveryOptionResponse {
	return deliveryOptionResponse{
		ShopID:                option.ShopID,
		Modes:                 option.Modes,
		DeliveryCharge:        option.DeliveryCharge,
		FreeDeliveryThreshold: option.FreeDeliveryThreshold,
		ServiceWindowEnd:      option.ServiceWindowEnd,
		DeliveryRadiusKM:      option.DeliveryRadiusKM,
	}
}

// VendorRegisterShop files a storefront application for the calling user.
// The shop stays pending until an admin approves it.
func VendorRegisterShop(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req registerShopRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Register(r.Context(), shops.RegisterShopInput{
			UserID:       userID,
			CategoryID:   req.CategoryID,
			ShopName:     req.ShopName,
			BusinessName: req.BusinessName,
			GSTNumber:    req.GSTNumber,
			Description:  req.Description,
			Address:      req.Address,
			Locality:     req.Locality,
			Pincode:      req.Pincode,
			Latitude:     req.Latitude,
			Longitude:    req.Longitude,
			OpeningTime:  req.OpeningTime,
			ClosingTime:  req.ClosingTime,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newShopResponse(*created))
	}
}

// VendorShopProfile returns the caller's own shop regardless of status.
func VendorShopProfile(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shop, err := svc.GetShopByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newShopResponse(*shop))
	}
}

// VendorSetAvailability toggles the open/closed flag on the caller's shop.
func VendorSetAvailability(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setAvailabilityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetAvailability(r.Context(), shopID, *req.Available); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"available": *req.Available})
	}
}

// VendorUpsertDeliveryOption writes the shop's single delivery configuration.
func VendorUpsertDeliveryOption(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req deliveryOptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		option, err := svc.UpsertDeliveryOption(r.Context(), shops.DeliveryOptionInput{
			ShopID:                shopID,
			Modes:                 req.Modes,
			DeliveryCharge:        req.DeliveryCharge,
			FreeDeliveryThreshold: req.FreeDeliveryThreshold,
			ServiceWindowEnd:      req.ServiceWindowEnd,
			DeliveryRadiusKM:      req.DeliveryRadiusKM,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDeliveryOptionResponse(*option))
	}
}

// VendorDeliveryOption reads the shop's delivery configuration.
func VendorDeliveryOption(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		option, err := svc.FindDeliveryOption(r.Context(), shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if option == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "delivery option not configured"))
			return
		}
		responses.WriteSuccess(w, newDeliveryOptionResponse(*option))
	}
}
