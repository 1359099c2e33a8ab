package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers lifecycle rows.
type Writer interface {
	InsertLifecycle(ctx context.Context, row types.LifecycleRow) error
}

// fields are the per-event columns a mapper extracts from its payload.
type fields struct {
	Status string
	Amount string
}

type entry struct {
	factory func() any
	mapper  func(payload any) fields
}

// Router maps lifecycle events onto rows and hands them to the writer.
type Router struct {
	entries map[enums.OutboxEventType]entry
	writer  Writer
	logg    *logger.Logger
}

func NewRouter(writer Writer, logg *logger.Logger) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Router{entries: lifecycleEntries(), writer: writer, logg: logg}, nil
}

// Supports reports whether eventType produces a lifecycle row.
func (r *Router) Supports(eventType enums.OutboxEventType) bool {
	_, ok := r.entries[eventType]
	return ok
}

func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	row, err := r.Row(envelope)
	if err != nil {
		return err
	}
	if err := r.writer.InsertLifecycle(ctx, row); err != nil {
		return err
	}
	r.logg.Info(ctx, "lifecycle row written")
	return nil
}

// Row builds the lifecycle row without writing it.
func (r *Router) Row(envelope types.Envelope) (types.LifecycleRow, error) {
	e, ok := r.entries[envelope.EventType]
	if !ok {
		return types.LifecycleRow{}, fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return types.LifecycleRow{}, fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	payload := e.factory()
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return types.LifecycleRow{}, fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	f := e.mapper(payload)
	return types.LifecycleRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		AggregateType: string(envelope.AggregateType),
		AggregateID:   envelope.AggregateID,
		Status:        nullString(f.Status),
		ActorRole:     nullString(string(envelope.ActorRole)),
		Amount:        nullString(f.Amount),
		OccurredAt:    envelope.OccurredAt.UTC(),
	}, nil
}

func nullString(value string) bigquery.NullString {
	if value == "" {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: value, Valid: true}
}
