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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gestion-ambientes/ambientes-backend/internal/checks"
	"github.com/gestion-ambientes/ambientes-backend/internal/cron"
	"github.com/gestion-ambientes/ambientes-backend/internal/directory"
	"github.com/gestion-ambientes/ambientes-backend/internal/notifications"
	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/metrics"
	"github.com/gestion-ambientes/ambientes-backend/pkg/migrate"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox"
	"github.com/gestion-ambientes/ambientes-backend/pkg/redis"
)

const (
	serviceKind   = "cron-worker"
	lockKeyFormat = "cron-worker:%s"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	only := flag.String("jobs", "", "comma separated job names to run (default all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err == nil && *only != "" {
		registry, err = registry.Only(strings.Split(*only, ",")...)
	}
	if err != nil {
		logg.Error(ctx, "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"serviceKind": serviceKind,
		"interval":    cfg.Cron.Interval.String(),
		"jobs":        registry.Names(),
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	go func() {
		if err := metrics.Serve(ctx, ":"+cfg.App.Port, prometheus.DefaultGatherer); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildRegistry registers the maintenance jobs in execution order.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)

	reminders, err := cron.NewStaleCheckReminderJob(cron.StaleCheckReminderJobParams{
		Logger:     logg,
		DB:         dbClient,
		Checks:     checks.NewRepository(conn),
		Directory:  directory.NewRepository(conn),
		Outbox:     outbox.NewService(outboxRepo, logg),
		Marker:     redisClient,
		StaleAfter: cfg.Cron.StaleCheckAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("stale check reminders: %w", err)
	}

	expiry, err := cron.NewNotificationExpiryJob(cron.NotificationExpiryJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(conn),
		ReadDays:   cfg.Cron.NotificationReadDays,
	})
	if err != nil {
		return nil, fmt.Errorf("notification expiry: %w", err)
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention: %w", err)
	}

	return cron.NewRegistry(reminders, expiry, retention)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
