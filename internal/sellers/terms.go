package sellers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
)

// DeliveryTerms is the strict form of a seller's delivery configuration.
// OrderItems snapshot these values at placement time.
type DeliveryTerms struct {
	Responsibility          string
	Coverage                string
	LogisticsMode           string
	MinDeliveryDays         int
	MaxDeliveryDays         int
	InternationalDelivery   bool
	ShippingType            enums.ShippingChargeType
	ShippingChargeCents     int64
	Installation            enums.InstallationAvailability
	InstallationChargeCents int64
}

// NormalizeTerms parses the loosely typed seller columns once. Sellers edited
// through older forms stored booleans as "true"/"yes"/"1" and amounts as free
// text; all of those collapse into the strict type here.
func NormalizeTerms(s models.Seller) (DeliveryTerms, error) {
	intl, err := ParseFlexibleBool(s.InternationalDelivery)
	if err != nil {
		return DeliveryTerms{}, termsError("internationalDelivery", err)
	}

	shipType, err := parseShippingType(s.ShippingChargeType)
	if err != nil {
		return DeliveryTerms{}, termsError("shippingChargeType", err)
	}
	shipCents, err := ParseAmountCents(s.ShippingCharge)
	if err != nil {
		return DeliveryTerms{}, termsError("shippingCharge", err)
	}
	if shipType == enums.ShippingFree {
		shipCents = 0
	}

	install, err := parseInstallation(s.InstallationAvailable)
	if err != nil {
		return DeliveryTerms{}, termsError("installationAvailable", err)
	}
	installCents, err := ParseAmountCents(s.InstallationCharge)
	if err != nil {
		return DeliveryTerms{}, termsError("installationCharge", err)
	}
	if install != enums.InstallationPaid {
		installCents = 0
	}

	if s.MinDeliveryDays < 0 || s.MaxDeliveryDays < 0 {
		return DeliveryTerms{}, termsError("deliveryDays", fmt.Errorf("delivery days must not be negative"))
	}
	if s.MaxDeliveryDays > 0 && s.MinDeliveryDays > s.MaxDeliveryDays {
		return DeliveryTerms{}, termsError("deliveryDays", fmt.Errorf("min delivery days %d exceeds max %d", s.MinDeliveryDays, s.MaxDeliveryDays))
	}

	return DeliveryTerms{
		Responsibility:          strings.TrimSpace(s.DeliveryResponsibility),
		Coverage:                strings.TrimSpace(s.DeliveryCoverage),
		LogisticsMode:           strings.TrimSpace(s.LogisticsMode),
		MinDeliveryDays:         s.MinDeliveryDays,
		MaxDeliveryDays:         s.MaxDeliveryDays,
		InternationalDelivery:   intl,
		ShippingType:            shipType,
		ShippingChargeCents:     shipCents,
		Installation:            install,
		InstallationChargeCents: installCents,
	}, nil
}

// ParseFlexibleBool accepts the boolean spellings found in seller data. The
// empty string is false.
func ParseFlexibleBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "false", "no", "0", "off":
		return false, nil
	case "true", "yes", "1", "on":
		return true, nil
	}
	return false, fmt.Errorf("not a boolean: %q", raw)
}

// ParseAmountCents parses a major-unit decimal string into cents. Empty means 0;
// more than two fractional digits, negatives and garbage are rejected.
func ParseAmountCents(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %q", raw)
	}
	cents := amount.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount has sub-cent precision: %q", raw)
	}
	if cents.GreaterThan(decimal.NewFromInt(1 << 53)) {
		return 0, fmt.Errorf("amount out of range: %q", raw)
	}
	return cents.IntPart(), nil
}

func parseShippingType(raw string) (enums.ShippingChargeType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "free":
		return enums.ShippingFree, nil
	case "fixed", "paid":
		return enums.ShippingFixed, nil
	}
	return "", fmt.Errorf("unknown shipping charge type %q", raw)
}

func parseInstallation(raw string) (enums.InstallationAvailability, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "no", "false", "none":
		return enums.InstallationNone, nil
	case "free":
		return enums.InstallationFree, nil
	case "paid", "yes", "true":
		return enums.InstallationPaid, nil
	}
	return "", fmt.Errorf("unknown installation availability %q", raw)
}

func termsError(field string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "seller delivery terms are invalid").
		WithDetails(map[string]any{"field": field, "reason": err.Error()})
}
