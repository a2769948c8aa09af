// Package pricing implements the cart pricer: a pure computation over a
// catalog snapshot that selects a unit rate per line and sums the cart.
package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/money"
)

// ItemRef identifies a sellable catalog entry, either a product or one of
// its variants.
type ItemRef struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

// ItemSnapshot is the immutable price/stock view the pricer works against.
type ItemSnapshot struct {
	Ref                ItemRef
	Name               string
	MRP                decimal.Decimal
	OfferPrice         *decimal.Decimal
	LowestSellingRate  *decimal.Decimal
	HighestSellingRate *decimal.Decimal
	TaxRate            enums.TaxRate
	QuantityOnHand     int
}

// Catalog resolves cart line references to snapshots.
type Catalog interface {
	Snapshot(ctx context.Context, ref ItemRef) (*ItemSnapshot, error)
}

// CartLine is one requested line, built from client input per request.
type CartLine struct {
	Ref           ItemRef
	Quantity      int
	BargainAmount *decimal.Decimal
}

// PricedLine is the result of pricing one CartLine.
type PricedLine struct {
	Ref       ItemRef
	Name      string
	Quantity  int
	UnitRate  decimal.Decimal
	UnitMRP   decimal.Decimal
	LineTotal decimal.Decimal
	TaxRate   enums.TaxRate
}

// PricedCart holds the per-line quotes and cart subtotal.
type PricedCart struct {
	Lines    []PricedLine
	Subtotal decimal.Decimal
}

// InsufficientStockDetail is the structured payload attached to stock
// failures so the customer sees "product X only has N left".
type InsufficientStockDetail struct {
	ProductName  string `json:"product_name"`
	QuantityLeft int    `json:"quantity_left"`
}

// PriceCart resolves and prices every line. Any line failure aborts the
// whole cart; a partial order is never produced.
func PriceCart(ctx context.Context, catalog Catalog, lines []CartLine) (*PricedCart, error) {
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog lookup required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	cart := &PricedCart{Subtotal: money.Zero}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		snap, err := catalog.Snapshot(ctx, line.Ref)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if line.Quantity > snap.QuantityOnHand {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(InsufficientStockDetail{
					ProductName:  snap.Name,
					QuantityLeft: snap.QuantityOnHand,
				})
		}

		unitRate := SelectUnitRate(snap, line.BargainAmount)
		lineTotal := unitRate.Mul(decimal.NewFromInt(int64(line.Quantity)))
		cart.Lines = append(cart.Lines, PricedLine{
			Ref:       line.Ref,
			Name:      snap.Name,
			Quantity:  line.Quantity,
			UnitRate:  unitRate,
			UnitMRP:   snap.MRP,
			LineTotal: lineTotal,
			TaxRate:   snap.TaxRate,
		})
		cart.Subtotal = cart.Subtotal.Add(lineTotal)
	}
	return cart, nil
}

// SelectUnitRate picks the per-unit rate in strict priority order: a bargain
// amount inside the seller's band, then the offer price, then MRP. The offer
// price is only considered when no (or an out-of-band) bargain was supplied.
func SelectUnitRate(snap *ItemSnapshot, bargain *decimal.Decimal) decimal.Decimal {
	if bargain != nil && bargainWithinBand(snap, *bargain) {
		return *bargain
	}
	if snap.OfferPrice != nil && snap.OfferPrice.IsPositive() {
		return *snap.OfferPrice
	}
	return snap.MRP
}

func bargainWithinBand(snap *ItemSnapshot, bargain decimal.Decimal) bool {
	if snap.LowestSellingRate == nil || snap.HighestSellingRate == nil {
		return false
	}
	return bargain.GreaterThanOrEqual(*snap.LowestSellingRate) &&
		bargain.LessThanOrEqual(*snap.HighestSellingRate)
}

// MRPTotal sums unit MRP across the priced cart; the commission splitter
// uses this as its base where the mode calls for MRP.
func (c *PricedCart) MRPTotal() decimal.Decimal {
	total := money.Zero
	for _, line := range c.Lines {
		total = total.Add(line.UnitMRP.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}
