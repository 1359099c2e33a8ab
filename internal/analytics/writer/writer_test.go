package writer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
)

type insertCall struct {
	table string
	rows  int
	ids   []string
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows any) error {
	call := insertCall{table: table}
	if typed, ok := rows.([]*cbigquery.StructSaver); ok {
		call.rows = len(typed)
		for _, saver := range typed {
			call.ids = append(call.ids, saver.InsertID)
		}
	}
	f.calls = append(f.calls, call)
	if len(f.calls) <= len(f.responses) {
		return f.responses[len(f.calls)-1]
	}
	return nil
}

func newTestWriter(t *testing.T, cfg Config) (*LifecycleWriter, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	cfg.LifecycleTable = "order_lifecycle_events"
	w, err := New(fake, cfg)
	require.NoError(t, err)
	w.sleep = func(context.Context, time.Duration) error { return nil }
	return w, fake
}

func TestNewRequiresClientAndTable(t *testing.T) {
	_, err := New(nil, Config{LifecycleTable: "order_lifecycle_events"})
	assert.Error(t, err)
	_, err = New(&fakeInserter{}, Config{LifecycleTable: " "})
	assert.Error(t, err)
}

func TestInsertRetriesTransientFailures(t *testing.T) {
	w, fake := newTestWriter(t, Config{})
	fake.responses = []error{&googleapi.Error{Code: http.StatusServiceUnavailable}, nil}

	require.NoError(t, w.InsertLifecycle(context.Background(), types.LifecycleRow{EventID: "1"}))
	require.Len(t, fake.calls, 2)
	assert.Equal(t, "order_lifecycle_events", fake.calls[1].table)
	assert.Zero(t, w.Pending())
}

func TestInsertStopsOnPermanentFailure(t *testing.T) {
	w, fake := newTestWriter(t, Config{})
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	assert.Error(t, w.InsertLifecycle(context.Background(), types.LifecycleRow{EventID: "1"}))
	assert.Len(t, fake.calls, 1)
	assert.Zero(t, w.Pending(), "rows are dropped after a failed insert")
}

func TestInsertGivesUpAfterConfiguredAttempts(t *testing.T) {
	w, fake := newTestWriter(t, Config{Retry: Backoff{Attempts: 3}})
	unavailable := status.Error(codes.Unavailable, "try later")
	fake.responses = []error{unavailable, unavailable, unavailable, nil}

	assert.Error(t, w.InsertLifecycle(context.Background(), types.LifecycleRow{EventID: "1"}))
	assert.Len(t, fake.calls, 3)
}

func TestBatchingAndFlush(t *testing.T) {
	w, fake := newTestWriter(t, Config{BatchSize: 2})
	ctx := context.Background()

	require.NoError(t, w.InsertLifecycle(ctx, types.LifecycleRow{EventID: "1"}))
	assert.Empty(t, fake.calls)
	assert.Equal(t, 1, w.Pending())

	require.NoError(t, w.InsertLifecycle(ctx, types.LifecycleRow{EventID: "2"}))
	require.Len(t, fake.calls, 1)
	assert.Equal(t, 2, fake.calls[0].rows)
	assert.Equal(t, []string{"1", "2"}, fake.calls[0].ids)

	require.NoError(t, w.InsertLifecycle(ctx, types.LifecycleRow{EventID: "3"}))
	require.NoError(t, w.Flush(ctx))
	require.Len(t, fake.calls, 2)
	assert.Equal(t, 1, fake.calls[1].rows)

	require.NoError(t, w.Flush(ctx))
	assert.Len(t, fake.calls, 2, "empty flush is a no-op")
}

func TestRunFlushesOnShutdown(t *testing.T) {
	w, fake := newTestWriter(t, Config{BatchSize: 10, FlushInterval: time.Hour})
	require.NoError(t, w.InsertLifecycle(context.Background(), types.LifecycleRow{EventID: "1"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Len(t, fake.calls, 1)
}

func TestTransientClassification(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"plain":            {errors.New("plain"), false},
		"http 429":         {&googleapi.Error{Code: http.StatusTooManyRequests}, true},
		"grpc invalid arg": {status.Error(codes.InvalidArgument, "bad row"), false},
		"grpc unavailable": {status.Error(codes.Unavailable, "later"), true},
		"empty multi":      {cbigquery.MultiError{}, false},
		"mixed rows": {cbigquery.PutMultiError{
			{RowIndex: 0, Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusServiceUnavailable}}},
			{RowIndex: 1, Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusBadRequest}}},
		}, false},
		"all rows transient": {cbigquery.PutMultiError{
			{RowIndex: 0, Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusServiceUnavailable}}},
		}, true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, transient(tc.err))
		})
	}
}

func TestBackoffDelayStaysUnderCap(t *testing.T) {
	b := Backoff{Base: 10 * time.Millisecond, Max: 40 * time.Millisecond}.withDefaults()
	for n := 1; n <= 8; n++ {
		d := b.delay(n)
		assert.LessOrEqual(t, d, b.Max)
		assert.Greater(t, d, time.Duration(0))
	}
}
