package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/coupons"
	"github.com/townielabs/townie-backend/pkg/db/models"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
)

type createCouponRequest struct {
	Code         string          `json:"code" validate:"required"`
	Description  *string         `json:"description"`
	Discount     decimal.Decimal `json:"discount" validate:"required"`
	IsPercentage bool            `json:"is_percentage"`
	ValidFrom    *time.Time      `json:"valid_from"`
	ValidTo      *time.Time      `json:"valid_to"`
}

type couponResponse struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Description  *string         `json:"description,omitempty"`
	Discount     decimal.Decimal `json:"discount"`
	IsPercentage bool            `json:"is_percentage"`
	IsActive     bool            `json:"is_active"`
	ValidFrom    *time.Time      `json:"valid_from,omitempty"`
	ValidTo      *time.Time      `json:"valid_to,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func newCouponResponse(coupon models.Coupon) couponResponse {
	return couponResponse{
		ID:           coupon.ID,
		Code:         coupon.Code,
		Description:  coupon.Description,
		Discount:     coupon.Discount,
		IsPercentage: coupon.IsPercentage,
		IsActive:     coupon.IsActive,
		ValidFrom:    coupon.ValidFrom,
		ValidTo:      coupon.ValidTo,
		CreatedAt:    coupon.CreatedAt,
	}
}

// VendorCreateCoupon defines a discount code scoped to the vendor's shop.
func VendorCreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), coupons.CreateCouponInput{
			ShopID:       shopID,
			Code:         req.Code,
			Description:  req.Description,
			Discount:     req.Discount,
			IsPercentage: req.IsPercentage,
			ValidFrom:    req.ValidFrom,
			ValidTo:      req.ValidTo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(*created))
	}
}

// VendorListCoupons lists the shop's coupons, active and expired.
func VendorListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListByShop(r.Context(), shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]couponResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newCouponResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

// VendorDeactivateCoupon retires a coupon without deleting its history.
func VendorDeactivateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		couponID, err := pathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), shopID, couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
