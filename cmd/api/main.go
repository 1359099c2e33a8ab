package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/giftops-backend/api/controllers"
	"github.com/angelmondragon/giftops-backend/api/routes"
	"github.com/angelmondragon/giftops-backend/internal/analytics"
	"github.com/angelmondragon/giftops-backend/internal/analytics/query"
	"github.com/angelmondragon/giftops-backend/internal/auth"
	"github.com/angelmondragon/giftops-backend/internal/bulkorders"
	"github.com/angelmondragon/giftops-backend/internal/dispatch"
	"github.com/angelmondragon/giftops-backend/internal/feedback"
	"github.com/angelmondragon/giftops-backend/internal/invoices"
	"github.com/angelmondragon/giftops-backend/internal/notifications"
	"github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/internal/shipping"
	"github.com/angelmondragon/giftops-backend/internal/stockrequests"
	"github.com/angelmondragon/giftops-backend/internal/tasks"
	"github.com/angelmondragon/giftops-backend/internal/tracking"
	"github.com/angelmondragon/giftops-backend/internal/users"
	"github.com/angelmondragon/giftops-backend/pkg/auth/session"
	"github.com/angelmondragon/giftops-backend/pkg/bigquery"
	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/maps"
	"github.com/angelmondragon/giftops-backend/pkg/migrate"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
	"github.com/angelmondragon/giftops-backend/pkg/redis"
	"github.com/angelmondragon/giftops-backend/pkg/storage/gcs"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

const shutdownTimeout = 20 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))
	requireResource(ctx, logg, "database metrics", dbClient.RegisterMetrics(prometheus.DefaultRegisterer, "giftops"))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(ctx, "error closing gcs client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "error closing bigquery client", err)
		}
	}()

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, sessions, gcsClient, bqClient)
	requireResource(ctx, logg, "services", err)

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(*deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	errCh := make(chan error, 1)
	go func() {
		logg.Info(runCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}

func buildDependencies(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessions *session.Manager,
	gcsClient *gcs.Client,
	bqClient *bigquery.Client,
) (*routes.Dependencies, error) {
	gdb := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(gdb), logg)

	usersRepo := users.NewRepository(gdb)
	usersSvc, err := users.NewService(users.ServiceParams{
		Repo:        usersRepo,
		Tx:          dbClient,
		Sessions:    sessions,
		PasswordCfg: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	productsSvc, err := products.NewService(products.NewRepository(gdb), dbClient, gcsClient, cfg.GCS.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	shippingSvc, err := shipping.NewService(shipping.NewRepository(gdb), dbClient)
	if err != nil {
		return nil, fmt.Errorf("shipping: %w", err)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(gdb),
		Tx:       dbClient,
		Outbox:   emitter,
		Catalog:  productsSvc,
		Shipping: shippingSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}
	trackingSvc, err := tracking.NewService(ordersSvc)
	if err != nil {
		return nil, fmt.Errorf("tracking: %w", err)
	}

	stockSvc, err := stockrequests.NewService(stockrequests.ServiceParams{
		Repo:      stockrequests.NewRepository(gdb),
		Tx:        dbClient,
		Outbox:    emitter,
		Inventory: productsSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("stock requests: %w", err)
	}
	invoicesSvc, err := invoices.NewService(invoices.ServiceParams{
		Repo:          invoices.NewRepository(gdb),
		Tx:            dbClient,
		Outbox:        emitter,
		StockRequests: stockSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("invoices: %w", err)
	}

	feedbackSvc, err := feedback.NewService(feedback.NewRepository(gdb), dbClient, emitter)
	if err != nil {
		return nil, fmt.Errorf("feedback: %w", err)
	}
	bulkSvc, err := bulkorders.NewService(bulkorders.ServiceParams{
		Repo:    bulkorders.NewRepository(gdb),
		Tx:      dbClient,
		Outbox:  emitter,
		Catalog: productsSvc,
		Orders:  ordersSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("bulk orders: %w", err)
	}
	tasksSvc, err := tasks.NewService(tasks.NewRepository(gdb), dbClient, emitter)
	if err != nil {
		return nil, fmt.Errorf("tasks: %w", err)
	}

	dispatchSvc, err := dispatch.NewService(usersSvc, ordersSvc, newRouter(cfg.Routing, logg))
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}

	summaries, err := query.NewSummaryService(bqClient, cfg.BigQuery.LifecycleTable)
	if err != nil {
		return nil, fmt.Errorf("analytics query: %w", err)
	}
	analyticsSvc, err := analytics.NewService(summaries)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}

	return &routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		Sessions:    sessions,
		Idempotency: redisClient,
		Limiter:     redisClient,
		Health: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
			"gcs":      gcsClient,
			"bigquery": bqClient,
		},
		Auth:          authSvc,
		Users:         usersSvc,
		Products:      productsSvc,
		Shipping:      shippingSvc,
		Orders:        ordersSvc,
		Tracking:      trackingSvc,
		StockRequests: stockSvc,
		Invoices:      invoicesSvc,
		Feedback:      feedbackSvc,
		BulkOrders:    bulkSvc,
		Tasks:         tasksSvc,
		Dispatch:      dispatchSvc,
		Notifications: notificationsSvc,
		Analytics:     analyticsSvc,
	}, nil
}

// newRouter falls back to a router that always reports the routing provider
// as unavailable, so the API still boots without a maps token.
func newRouter(cfg config.RoutingConfig, logg *logger.Logger) dispatch.Router {
	client, err := maps.NewClient(cfg.AccessToken, maps.WithBaseURL(cfg.BaseURL), maps.WithTimeout(cfg.Timeout))
	if err != nil {
		logg.Warn(context.Background(), "routing provider disabled: "+err.Error())
		return unavailableRouter{}
	}
	return client
}

type unavailableRouter struct{}

func (unavailableRouter) Directions(context.Context, types.LatLng, types.LatLng) (*maps.Route, error) {
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "routing provider not configured")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("failed to bootstrap %s", resource), err)
	os.Exit(1)
}
