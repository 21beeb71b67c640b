package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Seller carries the raw delivery-terms columns as captured by the seller
// profile forms. They are loosely typed on purpose; sellers.NormalizeTerms
// turns them into a strict value before pricing.
type Seller struct {
	ID                     uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email                  string    `gorm:"column:email;not null;uniqueIndex:ux_sellers_email"`
	Name                   string    `gorm:"column:name;not null"`
	OffersDesignServices   bool      `gorm:"column:offers_design_services;not null;default:false"`
	DeliveryResponsibility string    `gorm:"column:delivery_responsibility;not null;default:''"`
	DeliveryCoverage       string    `gorm:"column:delivery_coverage;not null;default:''"`
	LogisticsMode          string    `gorm:"column:logistics_mode;not null;default:''"`
	MinDeliveryDays        int       `gorm:"column:min_delivery_days;not null;default:0"`
	MaxDeliveryDays        int       `gorm:"column:max_delivery_days;not null;default:0"`
	InternationalDelivery  string    `gorm:"column:international_delivery;not null;default:''"`
	ShippingChargeType     string    `gorm:"column:shipping_charge_type;not null;default:''"`
	ShippingCharge         string    `gorm:"column:shipping_charge;not null;default:''"`
	InstallationAvailable  string    `gorm:"column:installation_available;not null;default:''"`
	InstallationCharge     string    `gorm:"column:installation_charge;not null;default:''"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Seller) TableName() string { return "sellers" }

func (s *Seller) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
