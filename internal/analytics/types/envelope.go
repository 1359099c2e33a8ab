package types

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

// Envelope is a decoded domain event as delivered to the analytics worker.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	ActorRole     enums.Role
	Payload       json.RawMessage
}
