package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/catalog"
	"github.com/townielabs/townie-backend/internal/shops"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

type shopResponse struct {
	ID           uuid.UUID        `json:"id"`
	ShopName     string           `json:"shop_name"`
	BusinessName *string          `json:"business_name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Address      string           `json:"address"`
	Locality     *string          `json:"locality,omitempty"`
	Pincode      string           `json:"pincode"`
	Latitude     float64          `json:"latitude"`
	Longitude    float64          `json:"longitude"`
	OpeningTime  *string          `json:"opening_time,omitempty"`
	ClosingTime  *string          `json:"closing_time,omitempty"`
	Status       enums.ShopStatus `json:"status"`
	Available    bool             `json:"available"`
	Rating       *float64         `json:"rating,omitempty"`
	Category     *string          `json:"category,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

type nearbyShopResponse struct {
	shopResponse
	DistanceKM float64 `json:"distance_km"`
}

func newShopResponse(shop models.Shop) shopResponse {
	resp := shopResponse{
		ID:           shop.ID,
		ShopName:     shop.ShopName,
		BusinessName: shop.BusinessName,
		Description:  shop.Description,
		Address:      shop.Address,
		Locality:     shop.Locality,
		Pincode:      shop.Pincode,
		Latitude:     shop.Latitude,
		Longitude:    shop.Longitude,
		OpeningTime:  shop.OpeningTime,
		ClosingTime:  shop.ClosingTime,
		Status:       shop.Status,
		Available:    shop.Available,
		Rating:       shop.Rating,
		CreatedAt:    shop.CreatedAt,
	}
	if shop.Category != nil {
		resp.Category = &shop.Category.Name
	}
	return resp
}

// NearbyShops lists approved, open shops around the caller's coordinates.
func NearbyShops(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		lat, err := validators.ParseQueryFloat(r, "lat", -90, 90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng", -180, 180)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radius, err := validators.ParseQueryInt(r, "radius_km", 0, 0, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.Nearby(r.Context(), lat, lng, float64(radius))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]nearbyShopResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, nearbyShopResponse{
				shopResponse: newShopResponse(row.Shop),
				DistanceKM:   row.DistanceKM,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// ShopDetail returns one storefront with its active listings.
func ShopDetail(shopSvc shops.Service, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if shopSvc == nil || catalogSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		shopID, err := pathUUID(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shop, err := shopSvc.GetShop(r.Context(), shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		search := strings.TrimSpace(r.URL.Query().Get("search"))
		products, err := catalogSvc.ListShopProducts(r.Context(), shopID, search, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productRows := make([]productResponse, 0, len(products))
		for _, p := range products {
			productRows = append(productRows, newProductResponse(p))
		}
		responses.WriteSuccess(w, map[string]any{
			"shop":     newShopResponse(*shop),
			"products": productRows,
		})
	}
}

// StorefrontParams serves the static vocabulary clients need to render
// checkout and registration forms.
func StorefrontParams(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryRows := make([]map[string]any, 0, len(categories))
		for _, c := range categories {
			categoryRows = append(categoryRows, map[string]any{
				"id":          c.ID,
				"name":        c.Name,
				"description": c.Description,
			})
		}
		responses.WriteSuccess(w, map[string]any{
			"categories": categoryRows,
			"payment_methods": []enums.PaymentMethod{
				enums.PaymentMethodCash,
				enums.PaymentMethodUPI,
				enums.PaymentMethodCard,
			},
			"delivery_modes": []enums.DeliveryMode{
				enums.DeliveryModePickup,
				enums.DeliveryModeSelfDelivery,
				enums.DeliveryModeBulkDelivery,
				enums.DeliveryModeTownieShip,
			},
		})
	}
}
