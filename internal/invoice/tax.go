// Package invoice backs GST out of tax-inclusive prices and produces
// invoice-ready line items for an order.
package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/money"
)

// Per-bracket factors for backing tax out of an inclusive price. The GST
// share factors already account for the cess embedded in the 12/18/28
// brackets; the 5% bracket carries no cess.
var (
	rate5GSTHalf = decimal.RequireFromString("0.0238095238")

	rate12PreTax   = decimal.RequireFromString("100").Div(decimal.RequireFromString("113"))
	rate12GSTShare = decimal.RequireFromString("0.1150442478")

	rate18PreTax   = decimal.RequireFromString("100").Div(decimal.RequireFromString("119"))
	rate18GSTShare = decimal.RequireFromString("0.1596638655")

	rate28PreTax   = decimal.RequireFromString("100").Div(decimal.RequireFromString("129"))
	rate28GSTShare = decimal.RequireFromString("0.2248062016")

	two = decimal.NewFromInt(2)
)

// TaxParts is the embedded tax backed out of one inclusive amount.
type TaxParts struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	Cess decimal.Decimal
}

// BackOutTax splits the tax embedded in the inclusive amount x for the
// bracket. Values are unrounded; callers round for display.
func BackOutTax(x decimal.Decimal, rate enums.TaxRate) (TaxParts, error) {
	switch rate {
	case enums.TaxRate5:
		half := x.Mul(rate5GSTHalf)
		return TaxParts{CGST: half, SGST: half, Cess: money.Zero}, nil
	case enums.TaxRate12:
		return cessBracket(x, rate12PreTax, rate12GSTShare), nil
	case enums.TaxRate18:
		return cessBracket(x, rate18PreTax, rate18GSTShare), nil
	case enums.TaxRate28:
		return cessBracket(x, rate28PreTax, rate28GSTShare), nil
	}
	return TaxParts{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported tax rate")
}

func cessBracket(x, preTaxFactor, gstShare decimal.Decimal) TaxParts {
	preTax := x.Mul(preTaxFactor)
	cess := preTax.Div(money.Hundred)
	half := x.Mul(gstShare).Sub(cess).Div(two)
	return TaxParts{CGST: half, SGST: half, Cess: cess}
}
