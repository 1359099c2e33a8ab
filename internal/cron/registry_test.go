package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	reg := NewRegistry(namedJob("order-ttl"), namedJob("outbox-retention"))
	assert.True(t, reg.Register(namedJob("notification-cleanup")))

	got := reg.Jobs()
	require.Len(t, got, 3)
	assert.Equal(t, []Job{namedJob("order-ttl"), namedJob("outbox-retention"), namedJob("notification-cleanup")}, got)

	got[0] = nil
	assert.NotNil(t, reg.Jobs()[0])
}

func TestRegistryRejectsDuplicatesAndNil(t *testing.T) {
	var reg Registry
	assert.True(t, reg.Register(namedJob("outbox-retention")))
	assert.False(t, reg.Register(namedJob("outbox-retention")))
	assert.False(t, reg.Register(nil))
	assert.Len(t, reg.Jobs(), 1)

	job, ok := reg.Lookup("outbox-retention")
	assert.True(t, ok)
	assert.Equal(t, "outbox-retention", job.Name())
	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}
