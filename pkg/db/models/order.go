package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is immutable after placement; only its items change state.
type Order struct {
	ID                      uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID              uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	CustomerName            string    `gorm:"column:customer_name;not null"`
	ShippingAddress         string    `gorm:"column:shipping_address;not null;default:''"`
	PaymentMethod           string    `gorm:"column:payment_method;not null"`
	SubtotalCents           int64     `gorm:"column:subtotal_cents;not null"`
	CasaChargeCents         int64     `gorm:"column:casa_charge_cents;not null"`
	DeliveryChargeCents     int64     `gorm:"column:delivery_charge_cents;not null"`
	InstallationChargeCents int64     `gorm:"column:installation_charge_cents;not null"`
	GrandTotalCents         int64     `gorm:"column:grand_total_cents;not null"`
	CreditAppliedCents      int64     `gorm:"column:credit_applied_cents;not null;default:0"`
	CreatedAt               time.Time `gorm:"column:created_at;autoCreateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
