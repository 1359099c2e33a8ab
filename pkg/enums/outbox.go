package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregateStockRequest   OutboxAggregateType = "stock_request"
	AggregateInvoice        OutboxAggregateType = "invoice"
	AggregateFeedbackThread OutboxAggregateType = "feedback_thread"
	AggregateTask           OutboxAggregateType = "task"
	AggregateBulkOrder      OutboxAggregateType = "bulk_order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateStockRequest,
	AggregateInvoice,
	AggregateFeedbackThread,
	AggregateTask,
	AggregateBulkOrder,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the canonical name of a domain event.
type OutboxEventType string

const (
	EventOrderCreated             OutboxEventType = "order.created"
	EventOrderStatusChanged       OutboxEventType = "order.status_changed"
	EventOrderRiderAssigned       OutboxEventType = "order.rider_assigned"
	EventOrderCancelled           OutboxEventType = "order.cancelled"
	EventOrderRated               OutboxEventType = "order.rated"
	EventOrderPaymentUpdated      OutboxEventType = "order.payment_updated"
	EventStockRequestCreated      OutboxEventType = "stock_request.created"
	EventStockRequestBidSubmitted OutboxEventType = "stock_request.bid_submitted"
	EventStockRequestAwarded      OutboxEventType = "stock_request.awarded"
	EventStockRequestClosed       OutboxEventType = "stock_request.closed"
	EventStockRequestReceived     OutboxEventType = "stock_request.received"
	EventInvoiceCreated           OutboxEventType = "invoice.created"
	EventInvoiceStatusChanged     OutboxEventType = "invoice.status_changed"
	EventFeedbackReplied          OutboxEventType = "feedback.replied"
	EventTaskAssigned             OutboxEventType = "task.assigned"
	EventBulkOrderQuoted          OutboxEventType = "bulk_order.quoted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderRiderAssigned,
	EventOrderCancelled,
	EventOrderRated,
	EventOrderPaymentUpdated,
	EventStockRequestCreated,
	EventStockRequestBidSubmitted,
	EventStockRequestAwarded,
	EventStockRequestClosed,
	EventStockRequestReceived,
	EventInvoiceCreated,
	EventInvoiceStatusChanged,
	EventFeedbackReplied,
	EventTaskAssigned,
	EventBulkOrderQuoted,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
