package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a buyer account. CreditCents is mutated only by the credit ledger.
type Customer struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email       string    `gorm:"column:email;not null;uniqueIndex:ux_customers_email"`
	Name        string    `gorm:"column:name;not null"`
	Phone       *string   `gorm:"column:phone"`
	Address     *string   `gorm:"column:address"`
	CreditCents int64     `gorm:"column:credit_cents;not null;default:0;check:chk_customers_credit_non_negative,credit_cents >= 0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
