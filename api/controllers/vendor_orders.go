package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/orders"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

type rejectOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type deliverOrderRequest struct {
	OTP string `json:"otp" validate:"required"`
}

// VendorListOrders pages through the shop's incoming orders, optionally
// filtered by status.
func VendorListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status"))
				return
			}
			status = &parsed
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListForShop(r.Context(), shopID, status, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]orderResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newOrderResponse(row, false))
		}
		responses.WriteSuccess(w, out)
	}
}

// VendorOrderDetail returns one of the shop's orders with its lines.
func VendorOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order.ShopID != shopID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, newOrderResponse(*order, false))
	}
}

// vendorOrderTransition factors the shared shell of the accept, ready and
// dispatch handlers.
func vendorOrderTransition(svc orders.Service, logg *logger.Logger, transition func(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := transition(r.Context(), shopID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(*updated, false))
	}
}

// VendorAcceptOrder moves a pending order to accepted.
func VendorAcceptOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorOrderTransition(svc, logg, func(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error) {
		return svc.Accept(ctx, shopID, orderID)
	})
}

// VendorRejectOrder declines a pending order with a reason.
func VendorRejectOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req rejectOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Reject(r.Context(), shopID, orderID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(*updated, false))
	}
}

// VendorMarkReady marks an accepted order as packed and ready.
func VendorMarkReady(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorOrderTransition(svc, logg, func(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error) {
		return svc.MarkReady(ctx, shopID, orderID)
	})
}

// VendorDispatchOrder marks a ready order as out for delivery.
func VendorDispatchOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return vendorOrderTransition(svc, logg, func(ctx context.Context, shopID, orderID uuid.UUID) (*models.Order, error) {
		return svc.Dispatch(ctx, shopID, orderID)
	})
}

// VendorDeliverOrder completes an order against the customer's OTP.
func VendorDeliverOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req deliverOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkDelivered(r.Context(), shopID, orderID, req.OTP)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(*updated, false))
	}
}
