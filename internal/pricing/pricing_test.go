package pricing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
)

func mustCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(DefaultCasaChargeBPS)
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	return calc
}

func TestCalculateFixedShippingPaidInstallation(t *testing.T) {
	calc := mustCalculator(t)

	totals, err := calc.Calculate([]Line{{
		Quantity:                2,
		UnitPriceCents:          500,
		ShippingType:            enums.ShippingFixed,
		ShippingChargeCents:     100,
		Installation:            enums.InstallationPaid,
		InstallationChargeCents: 50,
	}})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	want := Totals{SubtotalCents: 1000, DeliveryChargeCents: 100, InstallationTotalCents: 100, CasaChargeCents: 20, GrandTotalCents: 1220}
	if totals.SubtotalCents != want.SubtotalCents ||
		totals.DeliveryChargeCents != want.DeliveryChargeCents ||
		totals.InstallationTotalCents != want.InstallationTotalCents ||
		totals.CasaChargeCents != want.CasaChargeCents ||
		totals.GrandTotalCents != want.GrandTotalCents {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if got := totals.Lines[0].TotalCents; got != 1200 {
		t.Fatalf("expected line total 1200, got %d", got)
	}
}

func TestShippingIsChargedOncePerLine(t *testing.T) {
	calc := mustCalculator(t)

	one, _ := calc.Calculate([]Line{{Quantity: 1, UnitPriceCents: 100, ShippingType: enums.ShippingFixed, ShippingChargeCents: 300}})
	ten, _ := calc.Calculate([]Line{{Quantity: 10, UnitPriceCents: 100, ShippingType: enums.ShippingFixed, ShippingChargeCents: 300}})
	if one.DeliveryChargeCents != 300 || ten.DeliveryChargeCents != 300 {
		t.Fatalf("shipping should not scale with quantity: %d vs %d", one.DeliveryChargeCents, ten.DeliveryChargeCents)
	}
}

func TestFreeTermsAddNothing(t *testing.T) {
	calc := mustCalculator(t)

	totals, err := calc.Calculate([]Line{{
		Quantity:                3,
		UnitPriceCents:          1000,
		ShippingType:            enums.ShippingFree,
		ShippingChargeCents:     999,
		Installation:            enums.InstallationFree,
		InstallationChargeCents: 999,
	}})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if totals.DeliveryChargeCents != 0 || totals.InstallationTotalCents != 0 {
		t.Fatalf("free terms leaked charges: %+v", totals)
	}
	if totals.GrandTotalCents != 3060 {
		t.Fatalf("expected 3060, got %d", totals.GrandTotalCents)
	}
}

func TestCasaChargeRoundsHalfUp(t *testing.T) {
	calc := mustCalculator(t)
	cases := []struct {
		subtotal int64
		want     int64
	}{
		{subtotal: 24, want: 0}, // 0.48
		{subtotal: 25, want: 1}, // 0.50
		{subtotal: 74, want: 1}, // 1.48
		{subtotal: 75, want: 2}, // 1.50
		{subtotal: 0, want: 0},
		{subtotal: 123456, want: 2469}, // 2469.12
	}
	for _, tc := range cases {
		totals, err := calc.Calculate([]Line{{Quantity: 1, UnitPriceCents: tc.subtotal}})
		if err != nil {
			t.Fatalf("subtotal %d: %v", tc.subtotal, err)
		}
		if totals.CasaChargeCents != tc.want {
			t.Fatalf("subtotal %d: expected casa %d, got %d", tc.subtotal, tc.want, totals.CasaChargeCents)
		}
	}
}

func TestCalculateValidation(t *testing.T) {
	calc := mustCalculator(t)
	cases := map[string][]Line{
		"empty":             nil,
		"zero quantity":     {{Quantity: 0, UnitPriceCents: 100}},
		"negative price":    {{Quantity: 1, UnitPriceCents: -1}},
		"negative shipping": {{Quantity: 1, ShippingType: enums.ShippingFixed, ShippingChargeCents: -5}},
		"negative install":  {{Quantity: 1, Installation: enums.InstallationPaid, InstallationChargeCents: -5}},
		"overflow":          {{Quantity: 2, UnitPriceCents: math.MaxInt64 / 2}, {Quantity: 1, UnitPriceCents: 10}},
	}
	for name, lines := range cases {
		_, err := calc.Calculate(lines)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestValidationDetailsCarryLineIndex(t *testing.T) {
	calc := mustCalculator(t)
	_, err := calc.Calculate([]Line{{Quantity: 1, UnitPriceCents: 1}, {Quantity: -2, UnitPriceCents: 1}})
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok || details["line"] != 1 || details["field"] != "quantity" {
		t.Fatalf("unexpected details %#v", pkgerrors.As(err).Details())
	}
}

func TestNewCalculatorRejectsBadRate(t *testing.T) {
	if _, err := NewCalculator(-1); err == nil {
		t.Fatal("expected negative rate to fail")
	}
	if _, err := NewCalculator(10001); err == nil {
		t.Fatal("expected rate above 100% to fail")
	}
}

func TestGrandTotalAlwaysBalances(t *testing.T) {
	calc := mustCalculator(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		lines := make([]Line, 1+rng.Intn(5))
		for j := range lines {
			lines[j] = Line{
				Quantity:                1 + rng.Intn(20),
				UnitPriceCents:          rng.Int63n(1_000_000),
				ShippingType:            []enums.ShippingChargeType{enums.ShippingFree, enums.ShippingFixed}[rng.Intn(2)],
				ShippingChargeCents:     rng.Int63n(50_000),
				Installation:            []enums.InstallationAvailability{enums.InstallationNone, enums.InstallationFree, enums.InstallationPaid}[rng.Intn(3)],
				InstallationChargeCents: rng.Int63n(20_000),
			}
		}
		totals, err := calc.Calculate(lines)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if totals.GrandTotalCents != totals.SubtotalCents+totals.DeliveryChargeCents+totals.InstallationTotalCents+totals.CasaChargeCents {
			t.Fatalf("iteration %d: aggregates do not balance: %+v", i, totals)
		}
		var lineSum int64
		for _, lt := range totals.Lines {
			lineSum += lt.TotalCents
		}
		if lineSum+totals.CasaChargeCents != totals.GrandTotalCents {
			t.Fatalf("iteration %d: line totals %d + casa %d != grand %d", i, lineSum, totals.CasaChargeCents, totals.GrandTotalCents)
		}
	}
}

func TestFormatCents(t *testing.T) {
	if got := FormatCents(1220); got != "12.20" {
		t.Fatalf("expected 12.20, got %s", got)
	}
	if got := FormatCents(5); got != "0.05" {
		t.Fatalf("expected 0.05, got %s", got)
	}
}
