package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/payloads"
)

type fakeWriter struct {
	rows []types.LifecycleRow
	err  error
}

func (f *fakeWriter) InsertLifecycle(_ context.Context, row types.LifecycleRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func newTestRouter(t *testing.T, w Writer) *Router {
	t.Helper()
	r, err := NewRouter(w, logger.Discard())
	require.NoError(t, err)
	return r
}

func envelopeFor(t *testing.T, eventType enums.OutboxEventType, payload any) types.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return types.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.NewString(),
		OccurredAt:    time.Date(2026, 4, 2, 10, 0, 0, 0, time.FixedZone("EAT", 3*3600)),
		ActorRole:     enums.RoleDispatchManager,
		Payload:       raw,
	}
}

func TestStatusChangeRow(t *testing.T) {
	w := &fakeWriter{}
	r := newTestRouter(t, w)

	env := envelopeFor(t, enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{
		OrderID: uuid.New(),
		From:    enums.OrderStatusAssigned,
		To:      enums.OrderStatusOutForDelivery,
		Total:   decimal.RequireFromString("3800"),
	})
	require.NoError(t, r.Handle(context.Background(), env))
	require.Len(t, w.rows, 1)

	row := w.rows[0]
	assert.Equal(t, "order.status_changed", row.EventType)
	assert.Equal(t, "out_for_delivery", row.Status.StringVal)
	assert.Equal(t, "3800.00", row.Amount.StringVal)
	assert.Equal(t, "dispatch_manager", row.ActorRole.StringVal)
	assert.Equal(t, time.UTC, row.OccurredAt.Location())
}

func TestAwardAmountIsQuantityTimesPrice(t *testing.T) {
	r := newTestRouter(t, &fakeWriter{})
	row, err := r.Row(envelopeFor(t, enums.EventStockRequestAwarded, payloads.StockRequestAwardedEvent{
		StockRequestID: uuid.New(),
		PricePerUnit:   decimal.RequireFromString("90"),
		Quantity:       25,
	}))
	require.NoError(t, err)
	assert.Equal(t, "2250.00", row.Amount.StringVal)
	assert.Equal(t, "awarded", row.Status.StringVal)
}

func TestCancelledRowHasNoAmount(t *testing.T) {
	r := newTestRouter(t, &fakeWriter{})
	row, err := r.Row(envelopeFor(t, enums.EventOrderCancelled, payloads.OrderCancelledEvent{OrderID: uuid.New()}))
	require.NoError(t, err)
	assert.False(t, row.Amount.Valid)
	assert.Equal(t, "cancelled", row.Status.StringVal)
}

func TestUnsupportedAndBrokenPayloads(t *testing.T) {
	r := newTestRouter(t, &fakeWriter{})
	assert.False(t, r.Supports(enums.EventFeedbackReplied))

	_, err := r.Row(envelopeFor(t, enums.EventFeedbackReplied, map[string]string{}))
	assert.True(t, errors.Is(err, ErrUnsupportedEventType))

	env := envelopeFor(t, enums.EventOrderCreated, nil)
	env.Payload = json.RawMessage(`[1,2]`)
	_, err = r.Row(env)
	assert.Error(t, err)
}
