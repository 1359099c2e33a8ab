package worker

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/internal/analytics/router"
	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/metrics"
)

const consumerName = "analytics"

// Handler turns an envelope into a stored lifecycle row.
type Handler interface {
	Supports(eventType enums.OutboxEventType) bool
	Handle(ctx context.Context, envelope types.Envelope) error
}

type claimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Service feeds lifecycle events from Pub/Sub into the analytics handler.
// Each event id is claimed once per consumer; a failed handler releases the
// claim and nacks so redelivery can retry it.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	claims       claimer
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, claims claimer, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case claims == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{subscription: subscription, handler: handler, claims: claims, logg: logg}, nil
}

// WithMetrics counts every handled message by outcome.
func (s *Service) WithMetrics(m *metrics.ConsumerMetrics) *Service {
	s.metrics = m
	return s
}

// Run receives until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithComponent(ctx, consumerName)
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		outcome := s.process(msgCtx, msg)
		s.metrics.Observe(consumerName, outcome)
		if outcome == metrics.OutcomeRetry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process returns the metrics outcome; only OutcomeRetry is redelivered.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) string {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := decodeEnvelope(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "invalid analytics envelope")
		return metrics.OutcomeMalformed
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     env.EventID,
		"event_type":   env.EventType,
		"aggregate_id": env.AggregateID,
	})
	if !s.handler.Supports(env.EventType) {
		return metrics.OutcomeIgnored
	}
	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		s.logg.Warn(ctx, "invalid event id")
		return metrics.OutcomeMalformed
	}

	first, err := s.claims.Claim(ctx, consumerName, eventID)
	switch {
	case err != nil:
		s.logg.Error(ctx, "idempotency check failed", err)
		return metrics.OutcomeRetry
	case !first:
		s.logg.Debug(ctx, "event already processed")
		return metrics.OutcomeDuplicate
	}

	err = s.handler.Handle(ctx, *env)
	switch {
	case err == nil:
		return metrics.OutcomeProcessed
	case errors.Is(err, router.ErrUnsupportedEventType):
		return metrics.OutcomeIgnored
	}
	s.logg.Error(ctx, "handler error", err)
	if err := s.claims.Release(ctx, consumerName, eventID); err != nil {
		s.logg.Error(ctx, "failed to release idempotency claim", err)
	}
	return metrics.OutcomeRetry
}
