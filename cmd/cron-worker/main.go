package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/giftops-backend/internal/cron"
	"github.com/angelmondragon/giftops-backend/internal/notifications"
	"github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/internal/shipping"
	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/instance"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/metrics"
	"github.com/angelmondragon/giftops-backend/pkg/migrate"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
	"github.com/angelmondragon/giftops-backend/pkg/redis"
)

const (
	serviceKind     = "cron-worker"
	shutdownTimeout = 5 * time.Second
)

func main() {
	job := flag.String("job", "", "run a single job once and exit")
	flag.Parse()

	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *job); err != nil && !errors.Is(err, context.Canceled) {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(ctx, "cron worker failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, job string) error {
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

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeQuietly(ctx, logg, "database", dbClient.Close)
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer closeQuietly(ctx, logg, "redis", redisClient.Close)

	jobs, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		return fmt.Errorf("cron jobs: %w", err)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := dbClient.RegisterMetrics(reg, "giftops"); err != nil {
		return fmt.Errorf("db metrics: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Locks:    cron.RedisLocks(redisClient, cfg.Cron.LockTTL),
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	if job != "" {
		return service.RunJob(ctx, job)
	}

	logg.Info(ctx, "starting cron worker")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(gctx) })
	g.Go(func() error { return serveMetrics(gctx, ":"+cfg.Cron.MetricsPort, reg) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

// serveMetrics exposes reg until ctx ends.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	gdb := dbClient.DB()
	outboxRepo := outbox.NewRepository(gdb)

	// Expired orders are cancelled through the orders service so history
	// rows and events match a manual cancellation.
	catalog, err := products.NewService(products.NewRepository(gdb), dbClient, nil, 0)
	if err != nil {
		return nil, err
	}
	shippingSvc, err := shipping.NewService(shipping.NewRepository(gdb), dbClient)
	if err != nil {
		return nil, err
	}
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(gdb),
		Tx:       dbClient,
		Outbox:   outbox.NewService(outboxRepo, logg),
		Catalog:  catalog,
		Shipping: shippingSvc,
	})
	if err != nil {
		return nil, err
	}
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return nil, err
	}

	var jobs []cron.Job
	for _, build := range []func() (cron.Job, error){
		func() (cron.Job, error) {
			return cron.NewOrderTTLJob(cron.OrderTTLJobParams{Logger: logg, Orders: ordersSvc, TTL: cfg.Orders.UnpaidTTL})
		},
		func() (cron.Job, error) {
			return cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{Logger: logg, Repository: outboxRepo, Retention: cfg.Cron.OutboxRetention})
		},
		func() (cron.Job, error) {
			return cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{Logger: logg, Notifications: notificationsSvc, Retention: cfg.Cron.NotificationRetention})
		},
	} {
		job, err := build()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return cron.NewRegistry(jobs...), nil
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "failed to close "+name, err)
	}
}
