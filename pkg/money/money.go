// Package money centralizes the decimal arithmetic used for rupee amounts.
// All order, settlement, and invoice math goes through shopspring/decimal;
// float64 never touches a stored amount.
package money

import "github.com/shopspring/decimal"

var (
	Zero    = decimal.Zero
	Hundred = decimal.NewFromInt(100)
)

// Round2 rounds to two decimal places, half away from zero. This is the
// rounding applied to every persisted amount.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent applies pct (expressed as a fraction, e.g. 0.02 for 2%) to amount.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct)
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

// WithinTolerance reports whether a and b differ by at most tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}
