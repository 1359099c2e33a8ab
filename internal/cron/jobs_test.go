package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type fakeUnpaidOrders struct {
	cutoff    time.Time
	ids       []uuid.UUID
	orders    map[uuid.UUID]*models.Order
	cancelErr map[uuid.UUID]error
	cancelled []uuid.UUID
	actors    []types.Actor
}

func (f *fakeUnpaidOrders) StaleUnpaid(_ context.Context, cutoff time.Time, _ int) ([]uuid.UUID, error) {
	f.cutoff = cutoff
	return f.ids, nil
}

func (f *fakeUnpaidOrders) Lookup(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (f *fakeUnpaidOrders) Cancel(_ context.Context, actor types.Actor, id uuid.UUID, _ string) (*orders.OrderDTO, error) {
	if err := f.cancelErr[id]; err != nil {
		return nil, err
	}
	f.cancelled = append(f.cancelled, id)
	f.actors = append(f.actors, actor)
	return &orders.OrderDTO{}, nil
}

func pendingOrder(payment enums.PaymentStatus) *models.Order {
	return &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, PaymentStatus: payment}
}

func TestOrderTTLJobCancelsStaleUnpaidOrdersAsSystem(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	unpaid := pendingOrder(enums.PaymentStatusPending)
	failed := pendingOrder(enums.PaymentStatusFailed)
	paidSince := pendingOrder(enums.PaymentStatusPaid)
	fake := &fakeUnpaidOrders{
		ids: []uuid.UUID{unpaid.ID, failed.ID, paidSince.ID},
		orders: map[uuid.UUID]*models.Order{
			unpaid.ID: unpaid, failed.ID: failed, paidSince.ID: paidSince,
		},
	}
	jobIface, err := NewOrderTTLJob(OrderTTLJobParams{Logger: testLogger(), Orders: fake})
	require.NoError(t, err)
	job := jobIface.(*orderTTLJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, now.Add(-48*time.Hour), fake.cutoff)
	assert.ElementsMatch(t, []uuid.UUID{unpaid.ID, failed.ID}, fake.cancelled)
	for _, actor := range fake.actors {
		assert.True(t, actor.IsSystem())
	}
}

func TestOrderTTLJobCombinesPerOrderFailures(t *testing.T) {
	a := pendingOrder(enums.PaymentStatusPending)
	b := pendingOrder(enums.PaymentStatusPending)
	c := pendingOrder(enums.PaymentStatusPending)
	raced := pendingOrder(enums.PaymentStatusPending)
	fake := &fakeUnpaidOrders{
		ids:    []uuid.UUID{a.ID, b.ID, c.ID, raced.ID},
		orders: map[uuid.UUID]*models.Order{a.ID: a, b.ID: b, c.ID: c, raced.ID: raced},
		cancelErr: map[uuid.UUID]error{
			a.ID:     errors.New("db down"),
			b.ID:     errors.New("db still down"),
			raced.ID: pkgerrors.StateConflict("order", "processing", "cancelled"),
		},
	}
	job, err := NewOrderTTLJob(OrderTTLJobParams{Logger: testLogger(), Orders: fake, TTL: time.Hour})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2, "conflicts are skipped, other failures combined")
	assert.Equal(t, []uuid.UUID{c.ID}, fake.cancelled)
}

type fakeOutboxRetentionRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestOutboxRetentionJobUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{deleted: 12}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: repo,
		Retention:  7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*purgeJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-7 * 24 * time.Hour); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: &fakeOutboxRetentionRepo{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakePurger struct {
	cutoff time.Time
}

func (f *fakePurger) PurgeRead(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, nil
}

func TestNotificationCleanupJobDefaultsToNinetyDays(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	purger := &fakePurger{}
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger(), Notifications: purger})
	require.NoError(t, err)
	job := jobIface.(*purgeJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-90*24*time.Hour), purger.cutoff)
	assert.Equal(t, "notification-cleanup", job.Name())
}
