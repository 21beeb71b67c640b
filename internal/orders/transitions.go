package orders

import "github.com/casamarket/casa-backend/pkg/enums"

// allowedTransitions is the full item state graph. Anything not listed is
// rejected, which keeps terminal states terminal.
var allowedTransitions = map[enums.OrderItemStatus][]enums.OrderItemStatus{
	enums.OrderItemStatusPending: {
		enums.OrderItemStatusConfirmed,
		enums.OrderItemStatusRejected,
		enums.OrderItemStatusCancelled,
	},
	enums.OrderItemStatusConfirmed: {
		enums.OrderItemStatusOutForDelivery,
		enums.OrderItemStatusCancelled,
	},
	enums.OrderItemStatusOutForDelivery: {
		enums.OrderItemStatusFulfilled,
		enums.OrderItemStatusCancelled,
	},
}

// CanTransition reports whether an item may move from one status to another.
func CanTransition(from, to enums.OrderItemStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// sellerMayApply reports whether the target is a seller-driven status.
// Cancellation belongs to the customer.
func sellerMayApply(to enums.OrderItemStatus) bool {
	return to != enums.OrderItemStatusCancelled
}
