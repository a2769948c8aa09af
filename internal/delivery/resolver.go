// Package delivery computes the delivery surcharge for an order given the
// shop's configured delivery option and the chosen mode.
package delivery

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/money"
)

// Quote is the resolved delivery charge for an order.
type Quote struct {
	Charge              decimal.Decimal
	ServiceAvailableNow bool
}

// Resolve computes the delivery charge for the mode. A shop with no
// delivery option configured resolves to zero charge without error; this is
// deliberately permissive and the caller logs it as a warning.
//
// A config failure (townie-ship fee not configured) returns an error the
// caller maps to a pending-reconciliation marker on the order rather than
// aborting checkout.
func Resolve(mode enums.DeliveryMode, subtotal decimal.Decimal, option *models.DeliveryOption, now time.Time, cfg config.PricingConfig) (Quote, error) {
	if mode != "" && !mode.IsValid() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery mode")
	}
	if option == nil {
		return Quote{Charge: money.Zero, ServiceAvailableNow: true}, nil
	}

	switch mode {
	case enums.DeliveryModeSelfDelivery:
		charge := money.Zero
		if option.DeliveryCharge != nil {
			charge = *option.DeliveryCharge
		}
		return Quote{Charge: charge, ServiceAvailableNow: true}, nil

	case enums.DeliveryModeTownieShip:
		if option.FreeDeliveryThreshold != nil && subtotal.GreaterThanOrEqual(*option.FreeDeliveryThreshold) {
			return Quote{
				Charge:              money.Zero,
				ServiceAvailableNow: windowOpen(now, option.ServiceWindowEnd),
			}, nil
		}
		if !cfg.TownieShipCharge.IsPositive() {
			return Quote{}, pkgerrors.New(pkgerrors.CodeDependency, "townie ship charge not configured")
		}
		return Quote{Charge: cfg.TownieShipCharge, ServiceAvailableNow: true}, nil

	case enums.DeliveryModePickup, enums.DeliveryModeBulkDelivery, "":
		return Quote{Charge: money.Zero, ServiceAvailableNow: true}, nil
	}

	return Quote{Charge: money.Zero, ServiceAvailableNow: true}, nil
}

// windowOpen compares the current time-of-day against the shop's service
// window end ("15:04" wall-clock). A missing or malformed window is treated
// as open.
func windowOpen(now time.Time, windowEnd *string) bool {
	if windowEnd == nil || *windowEnd == "" {
		return true
	}
	end, err := time.Parse("15:04", *windowEnd)
	if err != nil {
		return true
	}
	nowMinutes := now.Hour()*60 + now.Minute()
	endMinutes := end.Hour()*60 + end.Minute()
	return nowMinutes <= endMinutes
}
