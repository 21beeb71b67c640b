package enums

// ShippingChargeType is the normalized seller shipping policy.
type ShippingChargeType string

const (
	ShippingFree  ShippingChargeType = "free"
	ShippingFixed ShippingChargeType = "fixed"
)

func (s ShippingChargeType) IsValid() bool {
	return s == ShippingFree || s == ShippingFixed
}

// InstallationAvailability is the normalized seller installation offer.
type InstallationAvailability string

const (
	InstallationNone InstallationAvailability = "no"
	InstallationFree InstallationAvailability = "free"
	InstallationPaid InstallationAvailability = "paid"
)

func (i InstallationAvailability) IsValid() bool {
	switch i {
	case InstallationNone, InstallationFree, InstallationPaid:
		return true
	default:
		return false
	}
}
