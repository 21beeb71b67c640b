package enums

// OutboxAggregateType names the entity an outbox event is about. It is
// copied to the aggregate_type message attribute.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateOrderItem     OutboxAggregateType = "order_item"
	AggregateReturnRequest OutboxAggregateType = "return_request"
	AggregateRating        OutboxAggregateType = "rating"
	AggregateHireRequest   OutboxAggregateType = "hire_request"
)

// OutboxEventType is "<aggregate>.<what happened>"; subscribers filter on it.
type OutboxEventType string

const (
	EventOrderPlaced            OutboxEventType = "order.placed"
	EventOrderItemStatusChanged OutboxEventType = "order_item.status_changed"
	EventReturnRequested        OutboxEventType = "return.requested"
	EventReturnDecided          OutboxEventType = "return.decided"
	EventRatingSubmitted        OutboxEventType = "rating.submitted"
	EventHireStatusChanged      OutboxEventType = "hire.status_changed"
)

var knownAggregates = values[OutboxAggregateType]{
	AggregateOrder, AggregateOrderItem, AggregateReturnRequest, AggregateRating, AggregateHireRequest,
}

var knownEvents = values[OutboxEventType]{
	EventOrderPlaced, EventOrderItemStatusChanged, EventReturnRequested,
	EventReturnDecided, EventRatingSubmitted, EventHireStatusChanged,
}

func (a OutboxAggregateType) IsValid() bool { return knownAggregates.has(a) }

func (e OutboxEventType) IsValid() bool { return knownEvents.has(e) }
