package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	keys     map[string]time.Duration
	setNXErr error
	deleted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]time.Duration{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.setNXErr != nil {
		return false, f.setNXErr
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "giftops:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func TestClaimOnlyOnce(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	first, err := manager.Claim(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 24*time.Hour, store.keys["giftops:idempotency:evt:notifications:"+eventID.String()])

	second, err := manager.Claim(context.Background(), "notifications", eventID)
	require.NoError(t, err)
	assert.False(t, second)

	other, err := manager.Claim(context.Background(), "analytics", eventID)
	require.NoError(t, err)
	assert.True(t, other, "consumers dedupe independently")
}

func TestReleaseAllowsReprocessing(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	_, err = manager.Claim(ctx, "notifications", eventID)
	require.NoError(t, err)
	require.NoError(t, manager.Release(ctx, "notifications", eventID))

	again, err := manager.Claim(ctx, "notifications", eventID)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestClaimErrors(t *testing.T) {
	store := newFakeStore()
	store.setNXErr = errors.New("boom")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.Claim(context.Background(), "notifications", uuid.New())
	assert.Error(t, err)
	_, err = manager.Claim(context.Background(), "", uuid.New())
	assert.Error(t, err)
	_, err = manager.Claim(context.Background(), "notifications", uuid.Nil)
	assert.Error(t, err)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newFakeStore(), 0)
	assert.Error(t, err)
}
