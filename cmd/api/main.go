package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gestion-ambientes/ambientes-backend/api/routes"
	"github.com/gestion-ambientes/ambientes-backend/internal/checkitems"
	"github.com/gestion-ambientes/ambientes-backend/internal/checks"
	"github.com/gestion-ambientes/ambientes-backend/internal/directory"
	"github.com/gestion-ambientes/ambientes-backend/internal/notifications"
	"github.com/gestion-ambientes/ambientes-backend/internal/reviews"
	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/metrics"
	"github.com/gestion-ambientes/ambientes-backend/pkg/migrate"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox"
	"github.com/gestion-ambientes/ambientes-backend/pkg/redis"
	"github.com/gestion-ambientes/ambientes-backend/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(ctx, "invalid timezone", err)
		os.Exit(1)
	}

	tp, err := tracing.InitTracer(ctx, "ambientes-api", cfg.Tracing)
	if err != nil {
		logg.Error(ctx, "failed to init tracer", err)
		os.Exit(1)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background(), tp); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	dir := directory.NewRepository(conn)
	itemsRepo := checkitems.NewRepository(conn)

	checksService, err := checks.NewService(checks.ServiceParams{
		Repo:             checks.NewTracedRepository(checks.NewRepository(conn)),
		Aggregator:       checks.NewAggregator(itemsRepo, loc),
		Directory:        dir,
		Reviews:          reviews.NewRecorder(reviews.NewRepository(conn)),
		Events:           outbox.NewService(outbox.NewRepository(conn), logg),
		TX:               dbClient,
		Metrics:          metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer),
		Logger:           logg,
		Location:         loc,
		InitiateRetries:  cfg.Workflow.InitiateRetries,
		SubmitOnInitiate: cfg.Workflow.SubmitStudentOnCreate,
	})
	if err != nil {
		logg.Error(ctx, "failed to create inventory checks service", err)
		os.Exit(1)
	}

	itemsService, err := checkitems.NewService(checkitems.ServiceParams{
		Repo:      itemsRepo,
		Items:     dir,
		Reflector: directory.NewInventoryItems(),
		TX:        dbClient,
		Location:  loc,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create inventory check items service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, routes.Deps{
		DB:             dbClient,
		Redis:          redisClient,
		Idempotency:    redisClient,
		Checks:         checksService,
		CheckItems:     itemsService,
		Notifications:  notificationsService,
		HTTPMetrics:    metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		MetricsHandler: promhttp.Handler(),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "ambientes-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
	}
}
