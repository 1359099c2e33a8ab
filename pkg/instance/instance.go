package instance

import (
	"os"

	"github.com/angelmondragon/giftops-backend/pkg/env"
)

// GetID returns the worker instance identifier. It prefers GIFTOPS_WORKER_ID,
// then the hostname.
func GetID() string {
	if id := env.Get("GIFTOPS_WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
