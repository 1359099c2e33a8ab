package notifications

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/metrics"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
)

const consumerName = "notifications"

type creator interface {
	CreateMany(ctx context.Context, rows []models.Notification) error
}

type claimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns domain events into in-app notifications.
type Consumer struct {
	repo         creator
	directory    RoleDirectory
	subscription *pubsub.Subscriber
	idempotency  claimer
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
}

func NewConsumer(repo Repository, subscription *pubsub.Subscriber, manager claimer, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		directory:    repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// WithMetrics counts every handled message by outcome.
func (c *Consumer) WithMetrics(m *metrics.ConsumerMetrics) *Consumer {
	c.metrics = m
	return c
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	ctx = c.logg.WithComponent(ctx, consumerName)
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Handle(ctx, msg.ID, msg.Attributes["event_type"], msg.Data) == OutcomeNack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type Outcome int

const (
	OutcomeAck Outcome = iota
	OutcomeNack
)

// Handle processes one delivery. Undecodable messages are acked so they do
// not redeliver forever; storage and idempotency failures are nacked.
func (c *Consumer) Handle(ctx context.Context, messageID, eventType string, data []byte) Outcome {
	outcome, label := c.handle(ctx, messageID, eventType, data)
	c.metrics.Observe(consumerName, label)
	return outcome
}

func (c *Consumer) handle(ctx context.Context, messageID, eventType string, data []byte) (Outcome, string) {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return OutcomeAck, metrics.OutcomeMalformed
	}
	if eventType == "" {
		eventType = envelope.EventType
	}
	kind := enums.OutboxEventType(eventType)
	if !Handles(kind) {
		return OutcomeAck, metrics.OutcomeIgnored
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return OutcomeAck, metrics.OutcomeMalformed
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	first, err := c.idempotency.Claim(ctx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return OutcomeNack, metrics.OutcomeRetry
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return OutcomeAck, metrics.OutcomeDuplicate
	}

	rows, err := build(ctx, c.directory, kind, eventID, envelope.Data)
	if err == nil {
		err = c.repo.CreateMany(ctx, rows)
	}
	if err != nil {
		var malformed errMalformed
		if errors.As(err, &malformed) {
			c.logg.Error(logCtx, "failed to parse payload", err)
			return OutcomeAck, metrics.OutcomeMalformed
		}
		c.logg.Error(logCtx, "notification handling failed", err)
		if releaseErr := c.idempotency.Release(ctx, consumerName, eventID); releaseErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency claim", releaseErr)
		}
		return OutcomeNack, metrics.OutcomeRetry
	}

	c.logg.Info(c.logg.WithField(logCtx, "recipients", len(rows)), "notifications created")
	return OutcomeAck, metrics.OutcomeProcessed
}
