package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db/types"
	"github.com/casamarket/casa-backend/pkg/enums"
)

// ReturnRequest holds the two approval gates. The composite status is derived
// on read and has no column.
type ReturnRequest struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderItemID          uuid.UUID            `gorm:"column:order_item_id;type:uuid;not null;uniqueIndex:ux_return_requests_order_item"`
	CustomerID           uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	SellerID             uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	Reason               string               `gorm:"column:reason;not null"`
	EvidenceURLs         types.StringList     `gorm:"column:evidence_urls;type:jsonb;not null"`
	SellerApprovalStatus enums.ApprovalStatus `gorm:"column:seller_approval_status;not null;default:'PENDING'"`
	AdminApprovalStatus  enums.ApprovalStatus `gorm:"column:admin_approval_status;not null;default:'PENDING'"`
	RefundMethod         enums.RefundMethod   `gorm:"column:refund_method;not null"`
	RefundAmountCents    int64                `gorm:"column:refund_amount_cents;not null"`
	SellerNote           *string              `gorm:"column:seller_note"`
	AdminNote            *string              `gorm:"column:admin_note"`
	RefundedAt           *time.Time           `gorm:"column:refunded_at"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (ReturnRequest) TableName() string { return "return_requests" }

func (r *ReturnRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
