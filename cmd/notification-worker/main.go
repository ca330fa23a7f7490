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

	"github.com/gestion-ambientes/ambientes-backend/internal/directory"
	"github.com/gestion-ambientes/ambientes-backend/internal/notifications"
	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/metrics"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox/idempotency"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox/registry"
	"github.com/gestion-ambientes/ambientes-backend/pkg/pubsub"
	"github.com/gestion-ambientes/ambientes-backend/pkg/redis"
)

const serviceKind = "notification-worker"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleSubscriber, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.NotificationSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "notification subscription", errors.New("subscription not configured"))
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	conn := dbClient.DB()
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repo:          notifications.NewRepository(conn),
		Directory:     directory.NewRepository(conn),
		Metrics:       metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer),
		Logger:        logg,
		TTL:           cfg.Workflow.NotificationTTL,
		ActionBaseURL: cfg.Workflow.ActionBaseURL,
	})
	requireResource(ctx, logg, "notification dispatcher", err)

	consumer, err := notifications.NewConsumer(dispatcher, registry.NewCheckDecoderRegistry(), subscription, guard, logg)
	requireResource(ctx, logg, "notification consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind":  serviceKind,
		"subscription": cfg.PubSub.NotificationSubscription,
	})

	go func() {
		if err := metrics.Serve(runCtx, ":"+cfg.App.Port, prometheus.DefaultGatherer); err != nil {
			logg.Error(runCtx, "metrics listener stopped", err)
		}
	}()

	logg.Info(runCtx, "notification worker ready")
	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "notification worker failed", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "notification worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
