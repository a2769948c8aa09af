package invoice

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/townielabs/townie-backend/pkg/enums"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/money"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func approx(t *testing.T, got decimal.Decimal, want string, label string) {
	t.Helper()
	if !money.WithinTolerance(got, dec(want), dec("0.01")) {
		t.Fatalf("%s = %s, want ~%s", label, got, want)
	}
}

func TestBackOutTax_Rate18RoundTrip(t *testing.T) {
	parts, err := BackOutTax(dec("118"), enums.TaxRate18)
	if err != nil {
		t.Fatalf("BackOutTax: %v", err)
	}
	approx(t, parts.CGST, "8.92", "cgst")
	if !parts.CGST.Equal(parts.SGST) {
		t.Fatalf("cgst %s != sgst %s", parts.CGST, parts.SGST)
	}
	approx(t, parts.Cess, "0.99", "cess")
	// pre-tax ~99.16, embedded tax ~18.84 on the inclusive 118
	approx(t, parts.CGST.Add(parts.SGST).Add(parts.Cess), "18.84", "tax sum")
}

func TestBackOutTax_Rate5NoCess(t *testing.T) {
	parts, err := BackOutTax(dec("105"), enums.TaxRate5)
	if err != nil {
		t.Fatalf("BackOutTax: %v", err)
	}
	if !parts.Cess.IsZero() {
		t.Fatalf("cess = %s, want 0 for the 5%% bracket", parts.Cess)
	}
	approx(t, parts.CGST, "2.50", "cgst")
	if !parts.CGST.Equal(parts.SGST) {
		t.Fatalf("cgst %s != sgst %s", parts.CGST, parts.SGST)
	}
}

func TestBackOutTax_Rate12(t *testing.T) {
	parts, err := BackOutTax(dec("113"), enums.TaxRate12)
	if err != nil {
		t.Fatalf("BackOutTax: %v", err)
	}
	approx(t, parts.Cess, "1.00", "cess")
	approx(t, parts.CGST, "6.00", "cgst")
}

func TestBackOutTax_Rate28(t *testing.T) {
	parts, err := BackOutTax(dec("129"), enums.TaxRate28)
	if err != nil {
		t.Fatalf("BackOutTax: %v", err)
	}
	approx(t, parts.Cess, "1.00", "cess")
	approx(t, parts.CGST, "14.00", "cgst")
}

func TestBackOutTax_UnsupportedRate(t *testing.T) {
	_, err := BackOutTax(dec("100"), enums.TaxRate(3))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBackOutTax_ZeroAmount(t *testing.T) {
	parts, err := BackOutTax(decimal.Zero, enums.TaxRate28)
	if err != nil {
		t.Fatalf("BackOutTax: %v", err)
	}
	if !parts.CGST.IsZero() || !parts.SGST.IsZero() || !parts.Cess.IsZero() {
		t.Fatalf("zero amount should carry zero tax, got %+v", parts)
	}
}
