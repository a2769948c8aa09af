package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/orders"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

type orderLineRequest struct {
	ProductID     uuid.UUID        `json:"product_id" validate:"required"`
	VariantID     *uuid.UUID       `json:"variant_id"`
	Quantity      int              `json:"quantity" validate:"required,gte=1"`
	BargainAmount *decimal.Decimal `json:"bargain_amount"`
}

type placeOrderRequest struct {
	ShopID        uuid.UUID          `json:"shop_id" validate:"required"`
	AddressID     *uuid.UUID         `json:"address_id"`
	DeliveryMode  string             `json:"delivery_mode" validate:"required"`
	PaymentMethod string             `json:"payment_method"`
	CouponCode    *string            `json:"coupon_code"`
	Notes         *string            `json:"notes"`
	Lines         []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type orderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitRate  decimal.Decimal `json:"unit_rate"`
	UnitMRP   decimal.Decimal `json:"unit_mrp"`
	LineTotal decimal.Decimal `json:"line_total"`
	TaxRate   enums.TaxRate   `json:"tax_rate"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderNumber    int64               `json:"order_number"`
	ShopID         uuid.UUID           `json:"shop_id"`
	CustomerID     uuid.UUID           `json:"customer_id"`
	AddressID      *uuid.UUID          `json:"address_id,omitempty"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	PaymentMethod  string              `json:"payment_method"`
	DeliveryMode   enums.DeliveryMode  `json:"delivery_mode"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Discount       decimal.Decimal     `json:"discount"`
	DeliveryCharge decimal.Decimal     `json:"delivery_charge"`
	GrandTotal     decimal.Decimal     `json:"grand_total"`
	CouponCode     *string             `json:"coupon_code,omitempty"`
	ChargePending  bool                `json:"charge_pending"`
	DeliveryOTP    *string             `json:"delivery_otp,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	Items          []orderItemResponse `json:"items,omitempty"`
	AcceptedAt     *time.Time          `json:"accepted_at,omitempty"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	CanceledAt     *time.Time          `json:"canceled_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// newOrderResponse maps an order for the wire. The delivery OTP is only
// attached for the customer who placed the order; the vendor learns it at
// the doorstep.
func newOrderResponse(order models.Order, includeDeliveryOTP bool) orderResponse {
	resp := orderResponse{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		ShopID:         order.ShopID,
		CustomerID:     order.CustomerID,
		AddressID:      order.AddressID,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		PaymentMethod:  order.PaymentMethod,
		DeliveryMode:   order.DeliveryMode,
		Subtotal:       order.Subtotal,
		Discount:       order.Discount,
		DeliveryCharge: order.DeliveryCharge,
		GrandTotal:     order.GrandTotal,
		CouponCode:     order.CouponCode,
		ChargePending:  order.ChargePending,
		Notes:          order.Notes,
		AcceptedAt:     order.AcceptedAt,
		DeliveredAt:    order.DeliveredAt,
		CanceledAt:     order.CanceledAt,
		CreatedAt:      order.CreatedAt,
	}
	if includeDeliveryOTP && order.CustomerOTP != "" {
		otp := order.CustomerOTP
		resp.DeliveryOTP = &otp
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitRate:  item.UnitRate,
			UnitMRP:   item.UnitMRP,
			LineTotal: item.LineTotal,
			TaxRate:   item.TaxRate,
		})
	}
	return resp
}

// PlaceOrder prices and creates an order for the calling customer.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req placeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := orders.PlaceOrderInput{
			CustomerID:    customerID,
			ShopID:        req.ShopID,
			AddressID:     req.AddressID,
			DeliveryMode:  req.DeliveryMode,
			PaymentMethod: req.PaymentMethod,
			CouponCode:    req.CouponCode,
			Notes:         req.Notes,
		}
		for _, line := range req.Lines {
			input.Lines = append(input.Lines, orders.CartLineInput{
				ProductID:     line.ProductID,
				VariantID:     line.VariantID,
				Quantity:      line.Quantity,
				BargainAmount: line.BargainAmount,
			})
		}
		created, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(*created, true))
	}
}

// ListMyOrders pages through the caller's order history, newest first.
func ListMyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListForCustomer(r.Context(), customerID, pagination.Params{
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

// OrderDetail returns one of the caller's orders including its delivery OTP.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		customerID, err := currentUserID(r)
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
		if order.CustomerID != customerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, newOrderResponse(*order, true))
	}
}

// CancelOrder cancels a pending order placed by the caller.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		canceled, err := svc.Cancel(r.Context(), customerID, orderID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(*canceled, false))
	}
}
