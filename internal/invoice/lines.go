package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	"github.com/townielabs/townie-backend/pkg/money"
)

const (
	deliveryChargeLineName = "Delivery charge"
	serviceChargeLineName  = "Service charge"
)

// ComputeTaxLines produces the invoice rows for an order: one per item plus
// the synthetic delivery/service charge rows the delivery mode calls for.
// serviceChargeBase is the referral fee plus platform service fee from the
// order's settlement; it only matters for the townie-ship mode.
//
// All amounts are rounded to 2 decimals for display.
func ComputeTaxLines(items []models.OrderItem, deliveryCharge decimal.Decimal, mode enums.DeliveryMode, serviceChargeBase decimal.Decimal) ([]models.InvoiceLine, error) {
	lines := make([]models.InvoiceLine, 0, len(items)+2)

	for _, item := range items {
		parts, err := BackOutTax(item.LineTotal, item.TaxRate)
		if err != nil {
			return nil, err
		}
		lines = append(lines, buildLine(item.Name, item.Quantity, item.UnitRate, item.LineTotal, parts))
	}

	switch mode {
	case enums.DeliveryModeSelfDelivery, enums.DeliveryModeBulkDelivery:
		line, err := syntheticLine(deliveryChargeLineName, deliveryCharge)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	case enums.DeliveryModeTownieShip:
		line, err := syntheticLine(serviceChargeLineName, serviceChargeBase)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
		if deliveryCharge.IsPositive() {
			line, err := syntheticLine(deliveryChargeLineName, deliveryCharge)
			if err != nil {
				return nil, err
			}
			lines = append(lines, line)
		}
	}

	for i := range lines {
		lines[i].Position = i + 1
	}
	return lines, nil
}

// syntheticLine builds a charge row taxed at the 28% bracket.
func syntheticLine(name string, amount decimal.Decimal) (models.InvoiceLine, error) {
	parts, err := BackOutTax(amount, enums.TaxRate28)
	if err != nil {
		return models.InvoiceLine{}, err
	}
	return buildLine(name, 1, amount, amount, parts), nil
}

func buildLine(name string, quantity int, unitPrice, lineTotal decimal.Decimal, parts TaxParts) models.InvoiceLine {
	cgst := money.Round2(parts.CGST)
	sgst := money.Round2(parts.SGST)
	cess := money.Round2(parts.Cess)
	return models.InvoiceLine{
		Name:      name,
		Quantity:  quantity,
		UnitPrice: money.Round2(unitPrice),
		LineTotal: money.Round2(lineTotal),
		CGST:      cgst,
		SGST:      sgst,
		IGST:      money.Zero,
		Cess:      cess,
		LineGrandTotal: money.Round2(lineTotal).
			Add(cgst).Add(sgst).Add(cess),
	}
}
