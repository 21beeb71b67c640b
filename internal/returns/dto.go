package returns

import (
	"time"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

type ReturnDTO struct {
	ID                   uuid.UUID            `json:"id"`
	OrderItemID          uuid.UUID            `json:"orderItemId"`
	CustomerID           uuid.UUID            `json:"customerId"`
	SellerID             uuid.UUID            `json:"sellerId"`
	Reason               string               `json:"reason"`
	EvidenceURLs         []string             `json:"evidenceUrls"`
	Status               enums.ReturnStatus   `json:"status"`
	SellerApprovalStatus enums.ApprovalStatus `json:"sellerApprovalStatus"`
	AdminApprovalStatus  enums.ApprovalStatus `json:"adminApprovalStatus"`
	RefundMethod         enums.RefundMethod   `json:"refundMethod"`
	RefundAmountCents    int64                `json:"refundAmountCents"`
	SellerNote           *string              `json:"sellerNote,omitempty"`
	AdminNote            *string              `json:"adminNote,omitempty"`
	RefundedAt           *time.Time           `json:"refundedAt,omitempty"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

func NewReturnDTO(r models.ReturnRequest) ReturnDTO {
	evidence := []string(r.EvidenceURLs)
	if evidence == nil {
		evidence = []string{}
	}
	return ReturnDTO{
		ID:                   r.ID,
		OrderItemID:          r.OrderItemID,
		CustomerID:           r.CustomerID,
		SellerID:             r.SellerID,
		Reason:               r.Reason,
		EvidenceURLs:         evidence,
		Status:               DeriveStatus(r.SellerApprovalStatus, r.AdminApprovalStatus),
		SellerApprovalStatus: r.SellerApprovalStatus,
		AdminApprovalStatus:  r.AdminApprovalStatus,
		RefundMethod:         r.RefundMethod,
		RefundAmountCents:    r.RefundAmountCents,
		SellerNote:           r.SellerNote,
		AdminNote:            r.AdminNote,
		RefundedAt:           r.RefundedAt,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func returnCursor(r ReturnDTO) pagination.Cursor {
	return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
}
