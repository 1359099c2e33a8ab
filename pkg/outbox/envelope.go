package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// CurrentVersion is the envelope layout written by Emit.
const CurrentVersion = 1

// ErrUnsupportedVersion marks envelopes written by a newer producer.
var ErrUnsupportedVersion = errors.New("unsupported envelope version")

// ActorRef identifies who produced the event. UserID is nil for system jobs.
type ActorRef struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
	Role   enums.Role `json:"role"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
// EventID equals the outbox row id, so consumers can dedupe on it.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored or published envelope. Version 0 predates
// the field and reads as version 1.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode payload envelope: %w", err)
	}
	if env.Version == 0 {
		env.Version = CurrentVersion
	}
	if env.Version > CurrentVersion {
		return PayloadEnvelope{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	return env, nil
}

// ActorFrom converts the service caller into the event actor.
func ActorFrom(actor types.Actor) *ActorRef {
	return &ActorRef{UserID: actor.UserIDPtr(), Role: actor.Role}
}
