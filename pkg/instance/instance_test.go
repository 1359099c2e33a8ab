package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv("GIFTOPS_WORKER_ID", "cron-7")
	assert.Equal(t, "cron-7", GetID())
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("GIFTOPS_WORKER_ID", "  ")
	assert.NotEmpty(t, GetID())
}
