package enums

import "strings"

// ApprovalStatus is the value of one return approval gate (seller or admin).
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

var approvalStatuses = values[ApprovalStatus]{ApprovalPending, ApprovalApproved, ApprovalRejected}

func (a ApprovalStatus) IsValid() bool { return approvalStatuses.has(a) }

// ReturnStatus is derived from the two approval gates and never persisted.
type ReturnStatus string

const (
	ReturnStatusRequested   ReturnStatus = "REQUESTED"
	ReturnStatusUnderReview ReturnStatus = "UNDER_REVIEW"
	ReturnStatusApproved    ReturnStatus = "APPROVED"
	ReturnStatusRejected    ReturnStatus = "REJECTED"
)

// ItemReturnStatus is the return marker kept on the order item itself.
type ItemReturnStatus string

const (
	ItemReturnNone      ItemReturnStatus = "NONE"
	ItemReturnRequested ItemReturnStatus = "REQUESTED"
	ItemReturnApproved  ItemReturnStatus = "APPROVED"
	ItemReturnRejected  ItemReturnStatus = "REJECTED"
)

// RefundMethod selects where an approved refund is paid to.
type RefundMethod string

const (
	RefundMethodStoreCredit     RefundMethod = "STORE_CREDIT"
	RefundMethodOriginalPayment RefundMethod = "ORIGINAL_PAYMENT"
)

var refundMethods = values[RefundMethod]{RefundMethodStoreCredit, RefundMethodOriginalPayment}

func (r RefundMethod) IsValid() bool { return refundMethods.has(r) }

// ParseRefundMethod accepts either case; the empty string defaults to store credit.
func ParseRefundMethod(value string) (RefundMethod, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return RefundMethodStoreCredit, nil
	}
	return refundMethods.parse("refund method", trimmed)
}
