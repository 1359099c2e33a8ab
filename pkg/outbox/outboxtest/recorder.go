// Package outboxtest provides an in-memory event emitter for service tests.
package outboxtest

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
)

// Recorder captures emitted events instead of writing outbox rows.
type Recorder struct {
	mu     sync.Mutex
	Events []outbox.DomainEvent
	// Err, when set, is returned from every Emit call.
	Err error
}

func (r *Recorder) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}

// Types lists the recorded event types in emission order.
func (r *Recorder) Types() []enums.OutboxEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]enums.OutboxEventType, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType)
	}
	return out
}

// Last returns the most recent event, or the zero value when none.
func (r *Recorder) Last() outbox.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Events) == 0 {
		return outbox.DomainEvent{}
	}
	return r.Events[len(r.Events)-1]
}
