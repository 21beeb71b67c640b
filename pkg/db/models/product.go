package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db/types"
	"github.com/casamarket/casa-backend/pkg/enums"
)

type Product struct {
	ID           uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	SellerID     uuid.UUID                 `gorm:"column:seller_id;type:uuid;not null;index"`
	Name         string                    `gorm:"column:name;not null"`
	PriceCents   int64                     `gorm:"column:price_cents;not null"`
	Availability enums.ProductAvailability `gorm:"column:availability;not null;default:'available'"`
	MediaURLs    types.StringList          `gorm:"column:media_urls;type:jsonb;not null"`
	CreatedAt    time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                 `gorm:"column:updated_at;autoUpdateTime"`

	Seller *Seller `gorm:"foreignKey:SellerID"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
