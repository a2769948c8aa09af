package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/invoice"
	"github.com/townielabs/townie-backend/internal/orders"
	"github.com/townielabs/townie-backend/internal/shops"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

type moderateShopRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// SettlementSource is the read surface admin order views need.
type SettlementSource interface {
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Settlement, error)
}

type invoiceLineResponse struct {
	Position       int             `json:"position"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	IGST           decimal.Decimal `json:"igst"`
	Cess           decimal.Decimal `json:"cess"`
	LineGrandTotal decimal.Decimal `json:"line_grand_total"`
}

func newInvoiceLineResponse(row models.InvoiceLine) invoiceLineResponse {
	return invoiceLineResponse{
		Position:       row.Position,
		Name:           row.Name,
		Quantity:       row.Quantity,
		UnitPrice:      row.UnitPrice,
		LineTotal:      row.LineTotal,
		CGST:           row.CGST,
		SGST:           row.SGST,
		IGST:           row.IGST,
		Cess:           row.Cess,
		LineGrandTotal: row.LineGrandTotal,
	}
}

// AdminPendingShops lists storefront applications awaiting moderation.
func AdminPendingShops(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListPending(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]shopResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newShopResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminModerateShop approves or rejects a pending shop.
func AdminModerateShop(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		adminID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shopID, err := pathUUID(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req moderateShopRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Moderate(r.Context(), shops.ModerateShopInput{
			ShopID:  shopID,
			AdminID: adminID,
			Approve: req.Approve,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newShopResponse(*updated))
	}
}

// AdminListOrders pages through recent orders across all shops, newest first.
func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
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
		rows, err := svc.ListRecent(r.Context(), status, pagination.Params{
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

// AdminOrderDetail returns an order with its settlement split and invoice
// lines for back-office review.
func AdminOrderDetail(ordersSvc orders.Service, settlements SettlementSource, invoices invoice.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ordersSvc == nil || settlements == nil || invoices == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := ordersSvc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := map[string]any{
			"order": newOrderResponse(*order, false),
		}

		split, err := settlements.FindByOrderID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup settlement"))
			return
		}
		if split != nil {
			payload["settlement"] = newSettlementResponse(*split)
		}

		lines, err := invoices.ListByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineRows := make([]invoiceLineResponse, 0, len(lines))
		for _, line := range lines {
			lineRows = append(lineRows, newInvoiceLineResponse(line))
		}
		payload["invoice_lines"] = lineRows

		responses.WriteSuccess(w, payload)
	}
}
