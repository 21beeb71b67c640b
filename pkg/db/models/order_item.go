package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/enums"
)

// OrderItem snapshots product and seller delivery terms at placement time.
type OrderItem struct {
	ID                       uuid.UUID                      `gorm:"column:id;type:uuid;primaryKey"`
	OrderID                  uuid.UUID                      `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID                uuid.UUID                      `gorm:"column:product_id;type:uuid;not null"`
	SellerID                 uuid.UUID                      `gorm:"column:seller_id;type:uuid;not null;index"`
	MaterialName             string                         `gorm:"column:material_name;not null"`
	SellerName               string                         `gorm:"column:seller_name;not null"`
	UnitPriceCents           int64                          `gorm:"column:unit_price_cents;not null"`
	Quantity                 int                            `gorm:"column:quantity;not null"`
	ShippingChargeType       enums.ShippingChargeType       `gorm:"column:shipping_charge_type;not null"`
	ShippingChargeCents      int64                          `gorm:"column:shipping_charge_cents;not null;default:0"`
	InstallationAvailability enums.InstallationAvailability `gorm:"column:installation_availability;not null"`
	InstallationChargeCents  int64                          `gorm:"column:installation_charge_cents;not null;default:0"`
	MinDeliveryDays          int                            `gorm:"column:min_delivery_days;not null;default:0"`
	MaxDeliveryDays          int                            `gorm:"column:max_delivery_days;not null;default:0"`
	ItemTotalCents           int64                          `gorm:"column:item_total_cents;not null"`
	Status                   enums.OrderItemStatus          `gorm:"column:status;not null;default:'pending'"`
	ReturnStatus             enums.ItemReturnStatus         `gorm:"column:return_status;not null;default:'NONE'"`
	CreatedAt                time.Time                      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time                      `gorm:"column:updated_at;autoUpdateTime"`

	Order *Order `gorm:"foreignKey:OrderID"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
