package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/metrics"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxIdleBackoff        = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topic is the slice of *pubsub.Publisher the loop needs. Result.Get blocks
// until the server acks.
type topic interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) result
}

type result interface {
	Get(ctx context.Context) (string, error)
}

type PublisherParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Events       eventStore
	DeadLetters  deadLetters
	Registry     resolver
	Topic        topic
	Metrics      *metrics.OutboxMetrics
	BatchSize    int
	PollInterval time.Duration
	MaxAttempts  int
}

// Publisher drains outbox_events onto the domain topic. Each batch runs in
// one transaction so the row locks taken by the fetch cover the publish.
type Publisher struct {
	logg        *logger.Logger
	db          txRunner
	events      eventStore
	dlq         deadLetters
	registry    resolver
	topic       topic
	metrics     *metrics.OutboxMetrics
	batchSize   int
	poll        time.Duration
	maxAttempts int
}

func NewPublisher(p PublisherParams) (*Publisher, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Events == nil:
		return nil, errors.New("outbox repository is required")
	case p.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	case p.Topic == nil:
		return nil, errors.New("domain topic is required")
	}
	pub := &Publisher{
		logg:        p.Logger,
		db:          p.DB,
		events:      p.Events,
		dlq:         p.DeadLetters,
		registry:    p.Registry,
		topic:       p.Topic,
		metrics:     p.Metrics,
		batchSize:   p.BatchSize,
		poll:        p.PollInterval,
		maxAttempts: p.MaxAttempts,
	}
	if pub.batchSize <= 0 {
		pub.batchSize = defaultBatchSize
	}
	if pub.poll <= 0 {
		pub.poll = defaultPollInterval
	}
	if pub.maxAttempts <= 0 {
		pub.maxAttempts = defaultMaxAttempts
	}
	return pub, nil
}

// Run polls until ctx is canceled. A full batch loops immediately; an empty
// one waits a poll interval; a failing one backs off exponentially.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	wait := p.poll
	for {
		if err := ctx.Err(); err != nil {
			p.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		n, err := p.drain(ctx)
		switch {
		case err != nil:
			p.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case n > 0:
			wait = p.poll
			continue
		default:
			wait = p.poll
		}

		if err := sleep(ctx, jitter(wait)); err != nil {
			return err
		}
	}
}

// drain handles one batch and returns how many rows it looked at.
func (p *Publisher) drain(ctx context.Context) (int, error) {
	var n int
	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := p.events.FetchUnpublishedForPublish(tx, p.batchSize, p.maxAttempts)
		if err != nil {
			return err
		}
		n = len(rows)
		for _, row := range rows {
			if err := p.deliver(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}

// deliver publishes one row and records the outcome. Only bookkeeping
// failures are returned; publish failures are written to the row.
func (p *Publisher) deliver(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	logCtx := p.logg.WithFields(ctx, map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	})

	resolved, err := p.registry.Resolve(row)
	if err != nil {
		return p.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonUnroutable, err)
	}

	pubErr := p.publish(ctx, row, resolved)
	if pubErr == nil {
		if err := p.events.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		p.metrics.Published(string(row.EventType))
		p.logg.Info(logCtx, "outbox event published")
		return nil
	}

	var permanent registry.NonRetryableError
	if errors.As(pubErr, &permanent) {
		return p.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonNonRetryable, pubErr)
	}
	if row.AttemptCount+1 >= p.maxAttempts {
		return p.deadLetter(logCtx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr))
	}

	p.logg.Warn(p.logg.WithField(logCtx, "error", pubErr.Error()), "outbox publish failed, will retry")
	p.metrics.Retried(string(row.EventType))
	if err := p.events.MarkFailedTx(tx, row.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", row.ID, err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	msg := &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	res := p.topic.Publish(ctx, msg)
	if res == nil {
		return registry.NewNonRetryableError(errors.New("publisher returned no result"))
	}
	_, err := res.Get(ctx)
	return err
}

func (p *Publisher) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox event moved to dead letter table")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := p.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := p.events.MarkTerminalTx(tx, row.ID, cause, p.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	p.metrics.DeadLettered(string(row.EventType), string(reason))
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jitter(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}

// pubsubTopic adapts *pubsub.Publisher, whose Publish returns a concrete type.
type pubsubTopic struct {
	pub *gcppubsub.Publisher
}

func (t pubsubTopic) Publish(ctx context.Context, msg *gcppubsub.Message) result {
	return t.pub.Publish(ctx, msg)
}
