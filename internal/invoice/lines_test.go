package invoice

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
)

func item(name string, qty int, unitRate string, rate enums.TaxRate) models.OrderItem {
	unit := dec(unitRate)
	return models.OrderItem{
		ProductID: uuid.New(),
		Name:      name,
		Quantity:  qty,
		UnitRate:  unit,
		UnitMRP:   unit,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(qty))),
		TaxRate:   rate,
	}
}

func lineByName(t *testing.T, lines []models.InvoiceLine, name string) models.InvoiceLine {
	t.Helper()
	for _, l := range lines {
		if l.Name == name {
			return l
		}
	}
	t.Fatalf("no line named %q in %d lines", name, len(lines))
	return models.InvoiceLine{}
}

func TestComputeTaxLines_PickupHasNoSyntheticLines(t *testing.T) {
	items := []models.OrderItem{
		item("Rice 5kg", 2, "100", enums.TaxRate5),
		item("Ghee 1l", 1, "590", enums.TaxRate12),
	}
	lines, err := ComputeTaxLines(items, decimal.Zero, enums.DeliveryModePickup, decimal.Zero)
	if err != nil {
		t.Fatalf("ComputeTaxLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for i, l := range lines {
		if l.Position != i+1 {
			t.Fatalf("line %d position = %d", i, l.Position)
		}
		if !l.IGST.IsZero() {
			t.Fatalf("igst = %s, want 0", l.IGST)
		}
	}
}

func TestComputeTaxLines_GrandTotalAddsEmbeddedTax(t *testing.T) {
	items := []models.OrderItem{item("Soap", 1, "118", enums.TaxRate18)}
	lines, err := ComputeTaxLines(items, decimal.Zero, enums.DeliveryModePickup, decimal.Zero)
	if err != nil {
		t.Fatalf("ComputeTaxLines: %v", err)
	}
	l := lines[0]
	want := l.LineTotal.Add(l.CGST).Add(l.SGST).Add(l.Cess)
	if !l.LineGrandTotal.Equal(want) {
		t.Fatalf("line grand total = %s, want %s", l.LineGrandTotal, want)
	}
}

func TestComputeTaxLines_SelfDeliveryAppendsDeliveryLine(t *testing.T) {
	items := []models.OrderItem{item("Atta 10kg", 1, "450", enums.TaxRate5)}
	lines, err := ComputeTaxLines(items, dec("50"), enums.DeliveryModeSelfDelivery, decimal.Zero)
	if err != nil {
		t.Fatalf("ComputeTaxLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want item + delivery", len(lines))
	}
	delivery := lineByName(t, lines, "Delivery charge")
	if !delivery.LineTotal.Equal(dec("50")) {
		t.Fatalf("delivery line total = %s, want 50", delivery.LineTotal)
	}
	if delivery.CGST.IsZero() || !delivery.CGST.Equal(delivery.SGST) {
		t.Fatalf("delivery line should carry the 28%% bracket split, got cgst %s sgst %s", delivery.CGST, delivery.SGST)
	}
}

func TestComputeTaxLines_TownieShipServiceCharge(t *testing.T) {
	items := []models.OrderItem{item("Oil 1l", 1, "200", enums.TaxRate5)}

	// below the free threshold: both service and delivery lines appear
	lines, err := ComputeTaxLines(items, dec("35"), enums.DeliveryModeTownieShip, dec("29.72"))
	if err != nil {
		t.Fatalf("ComputeTaxLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want item + service + delivery", len(lines))
	}
	service := lineByName(t, lines, "Service charge")
	if !service.LineTotal.Equal(dec("29.72")) {
		t.Fatalf("service line total = %s, want 29.72", service.LineTotal)
	}
	lineByName(t, lines, "Delivery charge")

	// free delivery: the delivery line is dropped, the service line stays
	lines, err = ComputeTaxLines(items, decimal.Zero, enums.DeliveryModeTownieShip, dec("29.72"))
	if err != nil {
		t.Fatalf("ComputeTaxLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want item + service only", len(lines))
	}
}

func TestComputeTaxLines_BadRateAbortsInvoice(t *testing.T) {
	items := []models.OrderItem{item("Mystery", 1, "10", enums.TaxRate(7))}
	if _, err := ComputeTaxLines(items, decimal.Zero, enums.DeliveryModePickup, decimal.Zero); err == nil {
		t.Fatal("expected error for unsupported tax rate")
	}
}
