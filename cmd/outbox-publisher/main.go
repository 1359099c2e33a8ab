package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/instance"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/metrics"
	"github.com/angelmondragon/giftops-backend/pkg/migrate"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/registry"
	"github.com/angelmondragon/giftops-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

// replayRequest selects dead letters to requeue instead of publishing.
type replayRequest struct {
	ids    string
	reason string
}

func (r replayRequest) empty() bool { return r.ids == "" && r.reason == "" }

func main() {
	var replay replayRequest
	flag.StringVar(&replay.ids, "replay", "", "comma separated dead-lettered event ids to requeue, then exit")
	flag.StringVar(&replay.reason, "replay-reason", "", "requeue up to 500 dead letters with this reason, then exit")
	flag.Parse()

	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, replay); err != nil && !errors.Is(err, context.Canceled) {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(ctx, "outbox publisher failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, replay replayRequest) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.Service.Kind = serviceKind
	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"topic":       cfg.PubSub.DomainTopic,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}
	deadLetters := outbox.NewDLQRepository(dbClient.DB())

	if !replay.empty() {
		n, err := replayDeadLetters(ctx, deadLetters, replay)
		logg.Info(logg.WithField(ctx, "replayed", n), "dlq replay finished")
		return err
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer closeQuietly(ctx, logg, "pubsub", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub.DomainTopic)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	if err := dbClient.RegisterMetrics(prometheus.DefaultRegisterer, "giftops"); err != nil {
		return fmt.Errorf("db metrics: %w", err)
	}

	publisher, err := NewPublisher(PublisherParams{
		Logger:       logg,
		DB:           dbClient,
		Events:       outbox.NewRepository(dbClient.DB()),
		DeadLetters:  deadLetters,
		Registry:     eventRegistry,
		Topic:        pubsubTopic{pub: pubsubClient.DomainPublisher()},
		Metrics:      metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval(),
		MaxAttempts:  cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}

	logg.Info(ctx, "starting outbox publisher")
	if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return nil
}

type deadLetterReplayer interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
	Replay(ctx context.Context, eventID uuid.UUID) error
}

// replayDeadLetters requeues the selected events and returns how many went
// back to the outbox. Every failure is reported, not just the first.
func replayDeadLetters(ctx context.Context, dlq deadLetterReplayer, req replayRequest) (int, error) {
	ids, errs := parseEventIDs(req.ids)
	if req.reason != "" {
		reason, err := enums.ParseOutboxDLQErrorReason(req.reason)
		if err != nil {
			return 0, err
		}
		entries, err := dlq.List(ctx, outbox.DLQFilter{Reason: reason, Limit: 500})
		if err != nil {
			return 0, fmt.Errorf("list dead letters: %w", err)
		}
		for _, entry := range entries {
			ids = append(ids, entry.EventID)
		}
	}

	replayed := 0
	for _, id := range ids {
		if err := dlq.Replay(ctx, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("replay %s: %w", id, err))
			continue
		}
		replayed++
	}
	return replayed, errs
}

func parseEventIDs(raw string) ([]uuid.UUID, error) {
	var (
		ids  []uuid.UUID
		errs error
	)
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("event id %q: %w", part, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, errs
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "failed to close "+name, err)
	}
}
