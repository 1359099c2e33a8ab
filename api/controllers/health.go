package controllers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is any dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GiftOps-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and answers 503 if any of them fails.
// Nil pingers are skipped so optional integrations can stay unwired.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name, dep := range deps {
		if dep != nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-GiftOps-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks, failed := pingAll(ctx, logg, deps, names)
		if failed {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

// pingAll checks every named dependency concurrently.
func pingAll(ctx context.Context, logg *logger.Logger, deps map[string]Pinger, names []string) (map[string]string, bool) {
	results := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = deps[name].Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]string, len(names))
	failed := false
	for i, name := range names {
		if err := results[i]; err != nil {
			checks[name] = "error"
			failed = true
			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "health.ready.dependency_failed")
			}
			continue
		}
		checks[name] = "ok"
	}
	return checks, failed
}
