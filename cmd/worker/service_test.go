package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeRunner struct {
	started bool
	err     error
}

func (f *fakeRunner) Run(ctx context.Context) error {
	f.started = true
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func TestRunStopsBeforeConsumersWhenDependencyIsDown(t *testing.T) {
	consumer := &fakeRunner{}
	svc, err := NewService(ServiceParams{
		Logger:       testLogger(),
		Dependencies: map[string]pinger{"database": fakePinger{}, "redis": fakePinger{err: errors.New("refused")}},
		Order:        []string{"database", "redis"},
		Consumers:    map[string]runner{"notifications": consumer},
	})
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	assert.False(t, consumer.started)
}

func TestRunReturnsConsumerFailure(t *testing.T) {
	boom := errors.New("subscription deleted")
	svc, err := NewService(ServiceParams{
		Logger:    testLogger(),
		Consumers: map[string]runner{"notifications": &fakeRunner{err: boom}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Run(context.Background()), boom)
}

func TestNewServiceRequiresListedDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{
		Logger:    testLogger(),
		Order:     []string{"pubsub"},
		Consumers: map[string]runner{"notifications": &fakeRunner{}},
	})
	require.Error(t, err)
}
