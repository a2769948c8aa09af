package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/settlement"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
)

type settlementResponse struct {
	ID             uuid.UUID          `json:"id"`
	OrderID        uuid.UUID          `json:"order_id"`
	DeliveryMode   enums.DeliveryMode `json:"delivery_mode"`
	TotalCost      decimal.Decimal    `json:"total_cost"`
	ReferralFee    decimal.Decimal    `json:"referral_fee"`
	TCS            decimal.Decimal    `json:"tcs"`
	TDR            decimal.Decimal    `json:"tdr"`
	TSF            decimal.Decimal    `json:"tsf"`
	PlatformAmount decimal.Decimal    `json:"platform_amount"`
	VendorAmount   decimal.Decimal    `json:"vendor_amount"`
	CreatedAt      time.Time          `json:"created_at"`
}

func newSettlementResponse(row models.Settlement) settlementResponse {
	return settlementResponse{
		ID:             row.ID,
		OrderID:        row.OrderID,
		DeliveryMode:   row.DeliveryMode,
		TotalCost:      row.TotalCost,
		ReferralFee:    row.ReferralFee,
		TCS:            row.TCS,
		TDR:            row.TDR,
		TSF:            row.TSF,
		PlatformAmount: row.PlatformAmount,
		VendorAmount:   row.VendorAmount,
		CreatedAt:      row.CreatedAt,
	}
}

// VendorSettlements lists recent commission splits for the vendor's shop.
func VendorSettlements(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListByShop(r.Context(), shopID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]settlementResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newSettlementResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}
