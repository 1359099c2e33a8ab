package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/giftops-backend/internal/analytics/router"
	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
	"github.com/angelmondragon/giftops-backend/internal/analytics/worker"
	"github.com/angelmondragon/giftops-backend/internal/analytics/writer"
	"github.com/angelmondragon/giftops-backend/pkg/bigquery"
	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/instance"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/metrics"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/giftops-backend/pkg/pubsub"
	"github.com/angelmondragon/giftops-backend/pkg/redis"
)

const serviceKind = "analytics-worker"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(ctx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
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
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg, cfg.PubSub.AnalyticsSubscription)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer closeQuietly(ctx, logg, "pubsub", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bigquery: %w", err)
	}
	defer closeQuietly(ctx, logg, "bigquery", bqClient.Close)

	schema, err := types.LifecycleSchema()
	if err != nil {
		return fmt.Errorf("lifecycle schema: %w", err)
	}
	if err := bqClient.EnsureTable(ctx, bigquery.TableSpec{
		Name:           cfg.BigQuery.LifecycleTable,
		Schema:         schema,
		PartitionField: "occurred_at",
	}); err != nil {
		return fmt.Errorf("lifecycle table: %w", err)
	}

	subscription := pubsubClient.AnalyticsSubscriber()
	if subscription == nil {
		return errors.New("analytics subscription not configured")
	}
	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency: %w", err)
	}

	lifecycle, err := writer.New(bqClient, writer.Config{
		LifecycleTable: cfg.BigQuery.LifecycleTable,
		BatchSize:      cfg.BigQuery.BatchSize,
		FlushInterval:  cfg.BigQuery.FlushInterval,
	})
	if err != nil {
		return fmt.Errorf("lifecycle writer: %w", err)
	}
	handler, err := router.NewRouter(lifecycle, logg)
	if err != nil {
		return fmt.Errorf("analytics router: %w", err)
	}
	consumer, err := worker.NewService(subscription, handler, claims, logg)
	if err != nil {
		return fmt.Errorf("analytics consumer: %w", err)
	}
	consumer = consumer.WithMetrics(metrics.NewConsumerMetrics(prometheus.DefaultRegisterer))

	logg.Info(ctx, "analytics worker ready")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return lifecycle.Run(gctx) })
	return g.Wait()
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "failed to close "+name, err)
	}
}
