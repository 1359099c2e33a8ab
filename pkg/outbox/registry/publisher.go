package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row or a pulled message.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals that retrying will never succeed.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry. All domain events share one topic;
// consumers filter on the event_type attribute.
func NewEventRegistry(topic string) (*EventRegistry, error) {
	if topic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	add := func(eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, factory func() any) {
		reg.entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  aggregate,
			Topic:          topic,
			PayloadFactory: factory,
		}
	}

	add(enums.EventOrderCreated, enums.AggregateOrder, func() any { return &payloads.OrderCreatedEvent{} })
	add(enums.EventOrderStatusChanged, enums.AggregateOrder, func() any { return &payloads.OrderStatusChangedEvent{} })
	add(enums.EventOrderRiderAssigned, enums.AggregateOrder, func() any { return &payloads.OrderRiderAssignedEvent{} })
	add(enums.EventOrderCancelled, enums.AggregateOrder, func() any { return &payloads.OrderCancelledEvent{} })
	add(enums.EventOrderRated, enums.AggregateOrder, func() any { return &payloads.OrderRatedEvent{} })
	add(enums.EventOrderPaymentUpdated, enums.AggregateOrder, func() any { return &payloads.OrderPaymentUpdatedEvent{} })

	add(enums.EventStockRequestCreated, enums.AggregateStockRequest, func() any { return &payloads.StockRequestCreatedEvent{} })
	add(enums.EventStockRequestBidSubmitted, enums.AggregateStockRequest, func() any { return &payloads.BidSubmittedEvent{} })
	add(enums.EventStockRequestAwarded, enums.AggregateStockRequest, func() any { return &payloads.StockRequestAwardedEvent{} })
	add(enums.EventStockRequestClosed, enums.AggregateStockRequest, func() any { return &payloads.StockRequestClosedEvent{} })
	add(enums.EventStockRequestReceived, enums.AggregateStockRequest, func() any { return &payloads.StockRequestReceivedEvent{} })

	add(enums.EventInvoiceCreated, enums.AggregateInvoice, func() any { return &payloads.InvoiceCreatedEvent{} })
	add(enums.EventInvoiceStatusChanged, enums.AggregateInvoice, func() any { return &payloads.InvoiceStatusChangedEvent{} })

	add(enums.EventFeedbackReplied, enums.AggregateFeedbackThread, func() any { return &payloads.FeedbackRepliedEvent{} })
	add(enums.EventTaskAssigned, enums.AggregateTask, func() any { return &payloads.TaskAssignedEvent{} })
	add(enums.EventBulkOrderQuoted, enums.AggregateBulkOrder, func() any { return &payloads.BulkOrderQuotedEvent{} })

	return reg, nil
}

// Descriptor looks up the descriptor for an event type.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}
	resolved, err := r.decode(desc, event.Payload)
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// ResolveMessage decodes a pulled Pub/Sub message body using its event_type attribute.
func (r *EventRegistry) ResolveMessage(eventType string, data []byte) (*ResolvedEvent, error) {
	desc, ok := r.entries[enums.OutboxEventType(eventType)]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %q", eventType))
	}
	return r.decode(desc, data)
}

func (r *EventRegistry) decode(desc EventDescriptor, raw []byte) (*ResolvedEvent, error) {
	envelope, err := outbox.DecodeEnvelope(raw)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("envelope event id: %w", err))
	}
	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", desc.EventType))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", desc.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
