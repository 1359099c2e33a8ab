package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
)

type fakeReplayer struct {
	entries  []models.OutboxDLQ
	filter   outbox.DLQFilter
	replayed []uuid.UUID
	fail     map[uuid.UUID]bool
}

func (f *fakeReplayer) List(_ context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error) {
	f.filter = filter
	return f.entries, nil
}

func (f *fakeReplayer) Replay(_ context.Context, id uuid.UUID) error {
	if f.fail[id] {
		return outbox.ErrNotDeadLettered
	}
	f.replayed = append(f.replayed, id)
	return nil
}

func TestReplayByIDsReportsEveryFailure(t *testing.T) {
	ok, missing := uuid.New(), uuid.New()
	dlq := &fakeReplayer{fail: map[uuid.UUID]bool{missing: true}}

	n, err := replayDeadLetters(context.Background(), dlq, replayRequest{ids: ok.String() + ", not-a-uuid ,," + missing.String()})

	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{ok}, dlq.replayed)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.True(t, errors.Is(err, outbox.ErrNotDeadLettered))
}

func TestReplayByReasonUsesFilter(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	dlq := &fakeReplayer{entries: []models.OutboxDLQ{{EventID: a}, {EventID: b}}}

	n, err := replayDeadLetters(context.Background(), dlq, replayRequest{reason: "unroutable"})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, enums.OutboxDLQReasonUnroutable, dlq.filter.Reason)
	assert.Equal(t, []uuid.UUID{a, b}, dlq.replayed)
}

func TestReplayRejectsUnknownReason(t *testing.T) {
	_, err := replayDeadLetters(context.Background(), &fakeReplayer{}, replayRequest{reason: "bored"})
	assert.Error(t, err)
	assert.True(t, replayRequest{}.empty())
}
