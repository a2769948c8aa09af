// Package settlement computes the per-order commission split between the
// platform and the vendor.
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	"github.com/townielabs/townie-backend/pkg/money"
)

// gstGrossUp embeds the 18% GST levied on the referral fee itself.
var gstGrossUp = decimal.RequireFromString("1.18")

// Split is the commission breakdown for one order. VendorAmount is derived
// as TotalCost minus PlatformAmount after rounding, so the two always sum
// back to TotalCost exactly.
type Split struct {
	TotalCost      decimal.Decimal
	ReferralFee    decimal.Decimal
	TCS            decimal.Decimal
	TDR            decimal.Decimal
	TSF            decimal.Decimal
	PlatformAmount decimal.Decimal
	VendorAmount   decimal.Decimal
}

// Compute splits base (the order's MRP total) for the delivery mode.
// All intermediate math stays unrounded; only the stored components are
// rounded, at the end, to 2 decimal places.
func Compute(base decimal.Decimal, mode enums.DeliveryMode, option *models.DeliveryOption, cfg config.PricingConfig) Split {
	referral := cfg.ReferralPct.Mul(base).Mul(gstGrossUp)

	totalCost := base
	tcsBase := base
	tsf := money.Zero

	switch mode {
	case enums.DeliveryModeSelfDelivery:
		if option != nil && option.DeliveryCharge != nil {
			totalCost = base.Add(*option.DeliveryCharge)
		}
		tcsBase = totalCost
	case enums.DeliveryModeTownieShip:
		tsf = money.Max(cfg.TSFRate.Mul(base), cfg.TSFMinimum)
		if option == nil || option.FreeDeliveryThreshold == nil || base.LessThan(*option.FreeDeliveryThreshold) {
			totalCost = base.Add(tsf)
		}
	}

	tcs := cfg.TCSRate.Mul(tcsBase)
	tdr := cfg.PaymentGwPct.Mul(totalCost)

	platform := referral.Add(tcs).Add(tdr)
	if mode == enums.DeliveryModeTownieShip {
		platform = platform.Add(tsf)
	}

	roundedTotal := money.Round2(totalCost)
	roundedPlatform := money.Round2(platform)
	return Split{
		TotalCost:      roundedTotal,
		ReferralFee:    money.Round2(referral),
		TCS:            money.Round2(tcs),
		TDR:            money.Round2(tdr),
		TSF:            money.Round2(tsf),
		PlatformAmount: roundedPlatform,
		VendorAmount:   roundedTotal.Sub(roundedPlatform),
	}
}
