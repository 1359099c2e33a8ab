package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/metrics"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/registry"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeEvents struct {
	rows      []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeEvents) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	return f.rows, nil
}

func (f *fakeEvents) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeEvents) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeEvents) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQ struct{ entries []models.OutboxDLQ }

func (f *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeResult struct{ err error }

func (r fakeResult) Get(context.Context) (string, error) { return "server-id", r.err }

// fakeTopic returns errs in order, then succeeds.
type fakeTopic struct {
	errs     []error
	messages []*gcppubsub.Message
}

func (f *fakeTopic) Publish(_ context.Context, msg *gcppubsub.Message) result {
	f.messages = append(f.messages, msg)
	if len(f.errs) == 0 {
		return fakeResult{}
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return fakeResult{err: err}
}

func orderRow(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		EventType:  string(eventType),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"orderId":"` + uuid.NewString() + `"}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func newTestPublisher(t *testing.T, events *fakeEvents, dlq *fakeDLQ, tp *fakeTopic, reg prometheus.Registerer) *Publisher {
	t.Helper()
	eventRegistry, err := registry.NewEventRegistry("giftops-domain")
	require.NoError(t, err)
	pub, err := NewPublisher(PublisherParams{
		Logger:      logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}),
		DB:          fakeDB{},
		Events:      events,
		DeadLetters: dlq,
		Registry:    eventRegistry,
		Topic:       tp,
		Metrics:     metrics.NewOutboxMetrics(reg),
		MaxAttempts: 3,
	})
	require.NoError(t, err)
	return pub
}

func TestDrainPublishesAndKeepsGoingAfterTransientFailure(t *testing.T) {
	first := orderRow(t, enums.EventOrderCreated, 0)
	second := orderRow(t, enums.EventOrderStatusChanged, 0)
	events := &fakeEvents{rows: []models.OutboxEvent{first, second}}
	tp := &fakeTopic{errs: []error{errors.New("unavailable")}}
	reg := prometheus.NewRegistry()

	n, err := newTestPublisher(t, events, &fakeDLQ{}, tp, reg).drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{first.ID}, events.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, events.published)
	require.Len(t, tp.messages, 2)
	assert.Equal(t, string(enums.EventOrderStatusChanged), tp.messages[1].Attributes["event_type"])
	assert.Equal(t, second.ID.String(), tp.messages[1].Attributes["event_id"])

	count, err := testutil.GatherAndCount(reg, "giftops_outbox_published_total", "giftops_outbox_retried_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDrainDeadLettersAfterMaxAttempts(t *testing.T) {
	row := orderRow(t, enums.EventOrderCreated, 2)
	events := &fakeEvents{rows: []models.OutboxEvent{row}}
	dlq := &fakeDLQ{}
	tp := &fakeTopic{errs: []error{errors.New("still down")}}

	_, err := newTestPublisher(t, events, dlq, tp, nil).drain(context.Background())
	require.NoError(t, err)

	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	assert.Equal(t, []uuid.UUID{row.ID}, events.terminal)
	assert.Empty(t, events.failed)
}

func TestDrainDeadLettersUnknownEventsWithoutPublishing(t *testing.T) {
	row := orderRow(t, enums.EventOrderCreated, 0)
	row.AggregateType = enums.AggregateInvoice
	events := &fakeEvents{rows: []models.OutboxEvent{row}}
	dlq := &fakeDLQ{}
	tp := &fakeTopic{}

	_, err := newTestPublisher(t, events, dlq, tp, nil).drain(context.Background())
	require.NoError(t, err)

	assert.Empty(t, tp.messages)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonUnroutable, dlq.entries[0].ErrorReason)
}

func TestNewPublisherAppliesDefaults(t *testing.T) {
	tp := &fakeTopic{}
	pub := newTestPublisher(t, &fakeEvents{}, &fakeDLQ{}, tp, nil)
	assert.Equal(t, defaultBatchSize, pub.batchSize)
	assert.Equal(t, defaultPollInterval, pub.poll)

	_, err := NewPublisher(PublisherParams{})
	assert.Error(t, err)
}
