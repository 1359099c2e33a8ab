package worker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
)

type attributes map[string]string

func (a attributes) get(key string) string { return strings.TrimSpace(a[key]) }

// or returns the first non-blank of the attribute and fallback.
func (a attributes) or(key, fallback string) string {
	if v := a.get(key); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

// decodeEnvelope reads the outbox payload envelope from the message body.
// Routing attributes win over the body where both carry a value.
func decodeEnvelope(msg *gcppubsub.Message) (*types.Envelope, error) {
	stored, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		return nil, err
	}
	attrs := attributes(msg.Attributes)

	eventType, err := enums.ParseOutboxEventType(attrs.or("event_type", stored.EventType))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attrs.get("aggregate_type"))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attrs.get("aggregate_id")
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}
	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = attrs.get("event_id")
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		occurredAt, _ = time.Parse(time.RFC3339Nano, attrs.get("created_at"))
	}

	env := &types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Payload:       stored.Data,
	}
	if stored.Actor != nil {
		env.ActorRole = stored.Actor.Role
	}
	return env, nil
}
