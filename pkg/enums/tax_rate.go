package enums

import "fmt"

// TaxRate is a GST percentage bracket. Catalog items carry exactly one of
// these; invoice tax is backed out of the tax-inclusive price per bracket.
type TaxRate int

const (
	TaxRate5  TaxRate = 5
	TaxRate12 TaxRate = 12
	TaxRate18 TaxRate = 18
	TaxRate28 TaxRate = 28
)

var validTaxRates = []TaxRate{TaxRate5, TaxRate12, TaxRate18, TaxRate28}

// IsValid reports whether the value is a supported GST bracket.
func (t TaxRate) IsValid() bool {
	for _, candidate := range validTaxRates {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTaxRate converts a raw percentage into a TaxRate.
func ParseTaxRate(value int) (TaxRate, error) {
	for _, candidate := range validTaxRates {
		if int(candidate) == value {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("invalid tax rate %d", value)
}
