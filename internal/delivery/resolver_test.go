package delivery

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db/models"
	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func testCfg() config.PricingConfig {
	return config.PricingConfig{TownieShipCharge: dec("35")}
}

func TestResolve_PickupAndBulkAreFree(t *testing.T) {
	option := &models.DeliveryOption{DeliveryCharge: decPtr("50")}

	for _, mode := range []enums.DeliveryMode{enums.DeliveryModePickup, enums.DeliveryModeBulkDelivery} {
		quote, err := Resolve(mode, dec("200"), option, time.Now(), testCfg())
		if err != nil {
			t.Fatalf("Resolve(%s): %v", mode, err)
		}
		if !quote.Charge.IsZero() {
			t.Fatalf("Resolve(%s) charge = %s, want 0", mode, quote.Charge)
		}
		if !quote.ServiceAvailableNow {
			t.Fatalf("Resolve(%s) service should be available", mode)
		}
	}
}

func TestResolve_SelfDeliveryUsesFlatCharge(t *testing.T) {
	option := &models.DeliveryOption{DeliveryCharge: decPtr("50")}

	quote, err := Resolve(enums.DeliveryModeSelfDelivery, dec("500"), option, time.Now(), testCfg())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !quote.Charge.Equal(dec("50")) {
		t.Fatalf("charge = %s, want 50", quote.Charge)
	}
}

func TestResolve_SelfDeliveryNoChargeConfigured(t *testing.T) {
	quote, err := Resolve(enums.DeliveryModeSelfDelivery, dec("500"), &models.DeliveryOption{}, time.Now(), testCfg())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !quote.Charge.IsZero() {
		t.Fatalf("charge = %s, want 0 when shop set no flat charge", quote.Charge)
	}
}

func TestResolve_TownieShipBelowThreshold(t *testing.T) {
	option := &models.DeliveryOption{FreeDeliveryThreshold: decPtr("100")}
	cfg := config.PricingConfig{TownieShipCharge: dec("20")}

	quote, err := Resolve(enums.DeliveryModeTownieShip, dec("40"), option, time.Now(), cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !quote.Charge.Equal(dec("20")) {
		t.Fatalf("charge = %s, want 20", quote.Charge)
	}
	if !quote.ServiceAvailableNow {
		t.Fatal("service should be available below threshold")
	}
}

func TestResolve_TownieShipAtThresholdIsFree(t *testing.T) {
	option := &models.DeliveryOption{FreeDeliveryThreshold: decPtr("100")}

	quote, err := Resolve(enums.DeliveryModeTownieShip, dec("100"), option, time.Now(), testCfg())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !quote.Charge.IsZero() {
		t.Fatalf("charge = %s, want 0 at threshold", quote.Charge)
	}
}

func TestResolve_TownieShipNoThresholdCharges(t *testing.T) {
	quote, err := Resolve(enums.DeliveryModeTownieShip, dec("10000"), &models.DeliveryOption{}, time.Now(), testCfg())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !quote.Charge.Equal(dec("35")) {
		t.Fatalf("charge = %s, want 35 when no free threshold is set", quote.Charge)
	}
}

func TestResolve_TownieShipUnconfiguredFee(t *testing.T) {
	_, err := Resolve(enums.DeliveryModeTownieShip, dec("40"), &models.DeliveryOption{}, time.Now(), config.PricingConfig{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error for unconfigured fee, got %v", err)
	}
}

func TestResolve_ServiceWindow(t *testing.T) {
	option := &models.DeliveryOption{
		FreeDeliveryThreshold: decPtr("100"),
		ServiceWindowEnd:      strPtr("21:00"),
	}
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"morning", day.Add(9 * time.Hour), true},
		{"at window end", day.Add(21 * time.Hour), true},
		{"after window end", day.Add(22 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := Resolve(enums.DeliveryModeTownieShip, dec("150"), option, tc.now, testCfg())
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if quote.ServiceAvailableNow != tc.want {
				t.Fatalf("ServiceAvailableNow = %v, want %v", quote.ServiceAvailableNow, tc.want)
			}
		})
	}
}

func TestResolve_MalformedWindowTreatedAsOpen(t *testing.T) {
	option := &models.DeliveryOption{
		FreeDeliveryThreshold: decPtr("100"),
		ServiceWindowEnd:      strPtr("nine pm"),
	}
	quote, err := Resolve(enums.DeliveryModeTownieShip, dec("150"), option, time.Now(), testCfg())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !quote.ServiceAvailableNow {
		t.Fatal("malformed window should not close the service")
	}
}

func TestResolve_NoOptionConfigured(t *testing.T) {
	quote, err := Resolve(enums.DeliveryModeTownieShip, dec("40"), nil, time.Now(), testCfg())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !quote.Charge.IsZero() {
		t.Fatalf("charge = %s, want 0 when the shop has no delivery option", quote.Charge)
	}
}
