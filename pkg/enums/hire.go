package enums

import "fmt"

// HireStatus tracks a designer hire request.
type HireStatus string

const (
	HireStatusPending   HireStatus = "pending"
	HireStatusAccepted  HireStatus = "accepted"
	HireStatusRejected  HireStatus = "rejected"
	HireStatusCompleted HireStatus = "completed"
)

// HireRatingDirection says who rated whom once a hire completed.
type HireRatingDirection string

const (
	HireRatingCustomerToDesigner HireRatingDirection = "customer_to_designer"
	HireRatingDesignerToCustomer HireRatingDirection = "designer_to_customer"
)

func ParseHireRatingDirection(value string) (HireRatingDirection, error) {
	switch HireRatingDirection(value) {
	case HireRatingCustomerToDesigner, HireRatingDesignerToCustomer:
		return HireRatingDirection(value), nil
	}
	return "", fmt.Errorf("invalid hire rating direction %q", value)
}
