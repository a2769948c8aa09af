// Package coupons resolves shop-scoped discount codes and applies them to a
// cart subtotal. A missing or inactive coupon is a silent zero discount, not
// an error; callers never see a "coupon not applicable" failure.
package coupons

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/money"
)

// Apply computes the discount for the coupon against the subtotal. A nil
// coupon yields zero discount. Flat discounts are intentionally not clamped
// to the subtotal; the caller decides what to do with a negative total.
func Apply(subtotal decimal.Decimal, coupon *models.Coupon) (discount, totalAfterDiscount decimal.Decimal) {
	if coupon == nil {
		return money.Zero, subtotal
	}
	if coupon.IsPercentage {
		discount = subtotal.Mul(coupon.Discount.Div(money.Hundred))
	} else {
		discount = coupon.Discount
	}
	return discount, subtotal.Sub(discount)
}

// Applicable reports whether the coupon is active and inside its validity
// window at the given instant.
func Applicable(coupon *models.Coupon, now time.Time) bool {
	if coupon == nil || !coupon.IsActive {
		return false
	}
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return false
	}
	if coupon.ValidTo != nil && now.After(*coupon.ValidTo) {
		return false
	}
	return true
}
