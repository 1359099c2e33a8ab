package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

const outboxDDL = `CREATE TABLE outbox_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at DATETIME,
	published_at DATETIME,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT
)`

const dlqDDL = `CREATE TABLE outbox_dlq (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL UNIQUE,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	error_reason TEXT NOT NULL,
	error_message TEXT,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	failed_at DATETIME,
	created_at DATETIME
)`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(outboxDDL).Error)
	require.NoError(t, conn.Exec(dlqDDL).Error)
	return conn
}

type orderTouched struct {
	OrderID uuid.UUID `json:"orderId"`
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(NewRepository(conn), nil)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	orderID := uuid.New()
	userID := uuid.New()
	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &ActorRef{UserID: &userID, Role: enums.RoleCustomer},
		Data:          orderTouched{OrderID: orderID},
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, enums.EventOrderCreated, row.EventType)
	assert.Equal(t, orderID, row.AggregateID)

	envelope, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	assert.Equal(t, row.ID.String(), envelope.EventID)
	assert.Equal(t, 1, envelope.Version)
	assert.True(t, envelope.OccurredAt.Equal(fixed))
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, enums.RoleCustomer, envelope.Actor.Role)
	assert.JSONEq(t, fmt.Sprintf(`{"orderId":%q}`, orderID), string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(NewRepository(conn), nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventTaskAssigned,
			AggregateType: enums.AggregateTask,
			AggregateID:   uuid.New(),
			Data:          map[string]string{"k": "v"},
		}); err != nil {
			return err
		}
		return errors.New("state change failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidation(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(NewRepository(conn), nil)
	ctx := context.Background()

	assert.Error(t, svc.Emit(ctx, nil, DomainEvent{}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: "nope", AggregateType: enums.AggregateOrder, AggregateID: uuid.New()}))
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder}))
	err := svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Version: CurrentVersion + 1})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeEnvelopeVersions(t *testing.T) {
	legacy, err := DecodeEnvelope([]byte(`{"eventId":"e1","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, legacy.Version)

	_, err = DecodeEnvelope([]byte(`{"version":2,"eventId":"e1"}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	first := models.OutboxEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), CreatedAt: time.Now().Add(-time.Minute)}
	second := models.OutboxEvent{EventType: enums.EventOrderRated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), CreatedAt: time.Now()}
	require.NoError(t, repo.Insert(conn, first))
	require.NoError(t, repo.Insert(conn, second))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("timeout")))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "timeout", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, rows[0].ID, errors.New("bad payload"), 3))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeletePublishedBefore(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	for _, published := range []*time.Time{&old, &recent, nil} {
		require.NoError(t, repo.Insert(conn, models.OutboxEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   published,
		}))
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

func TestDLQRepository(t *testing.T) {
	conn := newTestDB(t)
	repo := NewDLQRepository(conn)
	eventID := uuid.New()
	long := strings.Repeat("x", 5000)

	require.NoError(t, repo.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &long,
	}))

	found, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, *found.ErrorMessage, maxLastErrorLen)

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	rows, err := repo.List(context.Background(), DLQFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = repo.List(context.Background(), DLQFilter{Reason: enums.OutboxDLQReasonMaxAttempts})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDLQReplayResetsOutboxRow(t *testing.T) {
	conn := newTestDB(t)
	events := NewRepository(conn)
	dlq := NewDLQRepository(conn)
	ctx := context.Background()

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, events.Insert(conn, event))
	require.NoError(t, events.MarkTerminalTx(conn, event.ID, errors.New("boom"), 10))
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		AttemptCount:  10,
	}))

	require.NoError(t, dlq.Replay(ctx, event.ID))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "id = ?", event.ID).Error)
	assert.Zero(t, row.AttemptCount)
	assert.Nil(t, row.LastError)

	gone, err := dlq.FindByEventID(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.ErrorIs(t, dlq.Replay(ctx, event.ID), ErrNotDeadLettered)
}

func TestDLQReplayRecreatesMissingOutboxRow(t *testing.T) {
	conn := newTestDB(t)
	dlq := NewDLQRepository(conn)
	eventID := uuid.New()

	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"order_id":"x"}`),
		ErrorReason:   enums.OutboxDLQReasonUnroutable,
	}))
	require.NoError(t, dlq.Replay(context.Background(), eventID))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "id = ?", eventID).Error)
	assert.Nil(t, row.PublishedAt)
	assert.Equal(t, enums.EventOrderCreated, row.EventType)
}
