package enums

// OrderItemStatus tracks fulfillment of a single order line.
type OrderItemStatus string

const (
	OrderItemStatusPending        OrderItemStatus = "pending"
	OrderItemStatusConfirmed      OrderItemStatus = "confirmed"
	OrderItemStatusOutForDelivery OrderItemStatus = "out_for_delivery"
	OrderItemStatusFulfilled      OrderItemStatus = "fulfilled"
	OrderItemStatusRejected       OrderItemStatus = "rejected"
	OrderItemStatusCancelled      OrderItemStatus = "cancelled"
)

var orderItemStatuses = values[OrderItemStatus]{
	OrderItemStatusPending,
	OrderItemStatusConfirmed,
	OrderItemStatusOutForDelivery,
	OrderItemStatusFulfilled,
	OrderItemStatusRejected,
	OrderItemStatusCancelled,
}

func (s OrderItemStatus) String() string { return string(s) }

func (s OrderItemStatus) IsValid() bool { return orderItemStatuses.has(s) }

// IsTerminal reports whether no further transition can leave this status.
func (s OrderItemStatus) IsTerminal() bool {
	switch s {
	case OrderItemStatusFulfilled, OrderItemStatusRejected, OrderItemStatusCancelled:
		return true
	default:
		return false
	}
}

func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	return orderItemStatuses.parse("order item status", value)
}
