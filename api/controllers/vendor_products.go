package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/api/validators"
	"github.com/townielabs/townie-backend/internal/catalog"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/pagination"
)

type variantRequest struct {
	Name               string           `json:"name" validate:"required"`
	MRP                decimal.Decimal  `json:"mrp" validate:"required"`
	OfferPrice         *decimal.Decimal `json:"offer_price"`
	LowestSellingRate  *decimal.Decimal `json:"lowest_selling_rate"`
	HighestSellingRate *decimal.Decimal `json:"highest_selling_rate"`
	Quantity           int              `json:"quantity" validate:"gte=0"`
}

type createProductRequest struct {
	Name               string           `json:"name" validate:"required"`
	Code               *string          `json:"code"`
	Description        *string          `json:"description"`
	MRP                decimal.Decimal  `json:"mrp" validate:"required"`
	OfferPrice         *decimal.Decimal `json:"offer_price"`
	LowestSellingRate  *decimal.Decimal `json:"lowest_selling_rate"`
	HighestSellingRate *decimal.Decimal `json:"highest_selling_rate"`
	TaxRate            int              `json:"tax_rate"`
	Quantity           int              `json:"quantity" validate:"gte=0"`
	Unit               *string          `json:"unit"`
	Variants           []variantRequest `json:"variants" validate:"dive"`
}

type updateProductRequest struct {
	Name               *string          `json:"name"`
	Description        *string          `json:"description"`
	MRP                *decimal.Decimal `json:"mrp"`
	OfferPrice         *decimal.Decimal `json:"offer_price"`
	LowestSellingRate  *decimal.Decimal `json:"lowest_selling_rate"`
	HighestSellingRate *decimal.Decimal `json:"highest_selling_rate"`
	TaxRate            *int             `json:"tax_rate"`
	Quantity           *int             `json:"quantity"`
}

type variantResponse struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	MRP                decimal.Decimal  `json:"mrp"`
	OfferPrice         *decimal.Decimal `json:"offer_price,omitempty"`
	LowestSellingRate  *decimal.Decimal `json:"lowest_selling_rate,omitempty"`
	HighestSellingRate *decimal.Decimal `json:"highest_selling_rate,omitempty"`
	Quantity           int              `json:"quantity"`
	IsActive           bool             `json:"is_active"`
}

type productResponse struct {
	ID                 uuid.UUID         `json:"id"`
	ShopID             uuid.UUID         `json:"shop_id"`
	Name               string            `json:"name"`
	Code               *string           `json:"code,omitempty"`
	Description        *string           `json:"description,omitempty"`
	MRP                decimal.Decimal   `json:"mrp"`
	OfferPrice         *decimal.Decimal  `json:"offer_price,omitempty"`
	LowestSellingRate  *decimal.Decimal  `json:"lowest_selling_rate,omitempty"`
	HighestSellingRate *decimal.Decimal  `json:"highest_selling_rate,omitempty"`
	TaxRate            enums.TaxRate     `json:"tax_rate"`
	Quantity           int               `json:"quantity"`
	Unit               *string           `json:"unit,omitempty"`
	IsActive           bool              `json:"is_active"`
	Variants           []variantResponse `json:"variants,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

func newProductResponse(p models.Product) productResponse {
	resp := productResponse{
		ID:                 p.ID,
		ShopID:             p.ShopID,
		Name:               p.Name,
		Code:               p.Code,
		Description:        p.Description,
		MRP:                p.MRP,
		OfferPrice:         p.OfferPrice,
		LowestSellingRate:  p.LowestSellingRate,
		HighestSellingRate: p.HighestSellingRate,
		TaxRate:            p.TaxRate,
		Quantity:           p.Quantity,
		Unit:               p.Unit,
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
	}
	for _, v := range p.Variants {
		resp.Variants = append(resp.Variants, variantResponse{
			ID:                 v.ID,
			Name:               v.Name,
			MRP:                v.MRP,
			OfferPrice:         v.OfferPrice,
			LowestSellingRate:  v.LowestSellingRate,
			HighestSellingRate: v.HighestSellingRate,
			Quantity:           v.Quantity,
			IsActive:           v.IsActive,
		})
	}
	return resp
}

// VendorCreateProduct adds a listing to the vendor's shop.
func VendorCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := catalog.CreateProductInput{
			ShopID:             shopID,
			Name:               req.Name,
			Code:               req.Code,
			Description:        req.Description,
			MRP:                req.MRP,
			OfferPrice:         req.OfferPrice,
			LowestSellingRate:  req.LowestSellingRate,
			HighestSellingRate: req.HighestSellingRate,
			TaxRate:            req.TaxRate,
			Quantity:           req.Quantity,
			Unit:               req.Unit,
		}
		for _, v := range req.Variants {
			input.Variants = append(input.Variants, catalog.VariantInput{
				Name:               v.Name,
				MRP:                v.MRP,
				OfferPrice:         v.OfferPrice,
				LowestSellingRate:  v.LowestSellingRate,
				HighestSellingRate: v.HighestSellingRate,
				Quantity:           v.Quantity,
			})
		}
		created, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(*created))
	}
}

// VendorUpdateProduct edits a listing owned by the vendor's shop.
func VendorUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.UpdateProduct(r.Context(), shopID, productID, catalog.UpdateProductInput{
			Name:               req.Name,
			Description:        req.Description,
			MRP:                req.MRP,
			OfferPrice:         req.OfferPrice,
			LowestSellingRate:  req.LowestSellingRate,
			HighestSellingRate: req.HighestSellingRate,
			TaxRate:            req.TaxRate,
			Quantity:           req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(*updated))
	}
}

// VendorListProducts lists the vendor's own catalog, active or not.
func VendorListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
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
		rows, err := svc.ListShopProducts(r.Context(), shopID, search, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]productResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newProductResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

// VendorDeactivateProduct hides a listing from the storefront.
func VendorDeactivateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		shopID, err := currentShopID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateProduct(r.Context(), shopID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
