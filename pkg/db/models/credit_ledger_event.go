package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/enums"
)

// CreditLedgerEvent is an append-only audit row for every balance change.
type CreditLedgerEvent struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID        uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index"`
	Type              enums.CreditEventType `gorm:"column:type;not null"`
	AmountCents       int64                 `gorm:"column:amount_cents;not null"`
	BalanceAfterCents int64                 `gorm:"column:balance_after_cents;not null"`
	OrderID           *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	ReturnRequestID   *uuid.UUID            `gorm:"column:return_request_id;type:uuid"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (CreditLedgerEvent) TableName() string { return "credit_ledger_events" }

func (e *CreditLedgerEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
