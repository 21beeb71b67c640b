// Package pricing derives order money from server-trusted line data. It has no
// side effects and never reads client-sent prices.
package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
)

// DefaultCasaChargeBPS is the platform fee (2%) in basis points.
const DefaultCasaChargeBPS int64 = 200

const bpsDenominator = 10000

var maxCents = decimal.NewFromInt(math.MaxInt64)

// Line is one priced cart line. Shipping is charged once per line regardless
// of quantity; installation is charged per unit.
type Line struct {
	Quantity                int
	UnitPriceCents          int64
	ShippingType            enums.ShippingChargeType
	ShippingChargeCents     int64
	Installation            enums.InstallationAvailability
	InstallationChargeCents int64
}

// LineTotals breaks a line down the way it is persisted on an order item.
type LineTotals struct {
	MerchandiseCents  int64 `json:"merchandiseCents"`
	ShippingCents     int64 `json:"shippingCents"`
	InstallationCents int64 `json:"installationCents"`
	TotalCents        int64 `json:"totalCents"`
}

type Totals struct {
	SubtotalCents          int64        `json:"subtotalCents"`
	DeliveryChargeCents    int64        `json:"deliveryChargeCents"`
	InstallationTotalCents int64        `json:"installationTotalCents"`
	CasaChargeCents        int64        `json:"casaChargeCents"`
	GrandTotalCents        int64        `json:"grandTotalCents"`
	Lines                  []LineTotals `json:"lines"`
}

type Calculator struct {
	casaChargeBPS int64
}

func NewCalculator(casaChargeBPS int64) (*Calculator, error) {
	if casaChargeBPS < 0 || casaChargeBPS > bpsDenominator {
		return nil, fmt.Errorf("casa charge bps out of range: %d", casaChargeBPS)
	}
	return &Calculator{casaChargeBPS: casaChargeBPS}, nil
}

// Calculate prices every line and the order aggregates.
func (c *Calculator) Calculate(lines []Line) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	var subtotal, delivery, installation decimal.Decimal
	out := Totals{Lines: make([]LineTotals, 0, len(lines))}
	for i, line := range lines {
		lt, err := lineTotals(line)
		if err != nil {
			if details, ok := pkgerrors.As(err).Details().(map[string]any); ok {
				details["line"] = i
			}
			return Totals{}, err
		}
		out.Lines = append(out.Lines, lt)
		subtotal = subtotal.Add(decimal.NewFromInt(lt.MerchandiseCents))
		delivery = delivery.Add(decimal.NewFromInt(lt.ShippingCents))
		installation = installation.Add(decimal.NewFromInt(lt.InstallationCents))
	}

	casa := subtotal.Mul(decimal.NewFromInt(c.casaChargeBPS)).
		Div(decimal.NewFromInt(bpsDenominator)).
		Round(0)
	grand := subtotal.Add(delivery).Add(installation).Add(casa)
	if grand.GreaterThan(maxCents) {
		return Totals{}, overflow()
	}

	out.SubtotalCents = subtotal.IntPart()
	out.DeliveryChargeCents = delivery.IntPart()
	out.InstallationTotalCents = installation.IntPart()
	out.CasaChargeCents = casa.IntPart()
	out.GrandTotalCents = grand.IntPart()
	return out, nil
}

// LineTotal returns qty*unit + shipping (fixed only) + installation*qty (paid only).
func LineTotal(line Line) (int64, error) {
	lt, err := lineTotals(line)
	if err != nil {
		return 0, err
	}
	return lt.TotalCents, nil
}

func lineTotals(line Line) (LineTotals, error) {
	if line.Quantity < 1 {
		return LineTotals{}, validation("quantity", "quantity must be at least 1")
	}
	if line.UnitPriceCents < 0 {
		return LineTotals{}, validation("unitPrice", "unit price must not be negative")
	}
	if line.ShippingChargeCents < 0 {
		return LineTotals{}, validation("shippingCharge", "shipping charge must not be negative")
	}
	if line.InstallationChargeCents < 0 {
		return LineTotals{}, validation("installationCharge", "installation charge must not be negative")
	}

	qty := decimal.NewFromInt(int64(line.Quantity))
	merch := qty.Mul(decimal.NewFromInt(line.UnitPriceCents))

	shipping := decimal.Zero
	if line.ShippingType == enums.ShippingFixed {
		shipping = decimal.NewFromInt(line.ShippingChargeCents)
	}

	install := decimal.Zero
	if line.Installation == enums.InstallationPaid {
		install = qty.Mul(decimal.NewFromInt(line.InstallationChargeCents))
	}

	total := merch.Add(shipping).Add(install)
	if total.GreaterThan(maxCents) {
		return LineTotals{}, overflow()
	}
	return LineTotals{
		MerchandiseCents:  merch.IntPart(),
		ShippingCents:     shipping.IntPart(),
		InstallationCents: install.IntPart(),
		TotalCents:        total.IntPart(),
	}, nil
}

// FormatCents renders minor units as a fixed two-decimal amount.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func validation(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}

func overflow() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "order amount exceeds supported range")
}
