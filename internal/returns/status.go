package returns

import "github.com/casamarket/casa-backend/pkg/enums"

// DeriveStatus composes the two approval gates into the status shown to
// callers. A rejection at either gate wins over everything else.
func DeriveStatus(seller, admin enums.ApprovalStatus) enums.ReturnStatus {
	switch {
	case seller == enums.ApprovalRejected || admin == enums.ApprovalRejected:
		return enums.ReturnStatusRejected
	case seller == enums.ApprovalApproved && admin == enums.ApprovalApproved:
		return enums.ReturnStatusApproved
	case seller == enums.ApprovalApproved:
		return enums.ReturnStatusUnderReview
	default:
		return enums.ReturnStatusRequested
	}
}

// Gate names one of the two approval decisions.
type Gate string

const (
	GateSeller Gate = "seller"
	GateAdmin  Gate = "admin"
)
