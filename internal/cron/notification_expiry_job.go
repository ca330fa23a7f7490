package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

const notificationReadRetentionDays = 30

// NotificationExpiryJobParams wires the notification expiry job.
type NotificationExpiryJobParams struct {
	Logger     *logger.Logger
	Repository notificationExpiryRepo
	ReadDays   int
}

type notificationExpiryRepo interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationExpiryJob deletes expired notifications and read ones past
// the read retention window.
func NewNotificationExpiryJob(params NotificationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &notificationExpiryJob{
		logg:       params.Logger,
		repo:       params.Repository,
		readWindow: daysWindow(params.ReadDays, notificationReadRetentionDays),
		now:        time.Now,
	}, nil
}

type notificationExpiryJob struct {
	logg       *logger.Logger
	repo       notificationExpiryRepo
	readWindow time.Duration
	now        func() time.Time
}

func (j *notificationExpiryJob) Name() string { return "notification-expiry" }

func (j *notificationExpiryJob) Run(ctx context.Context) (int64, error) {
	now := j.now().UTC()
	cutoff := now.Add(-j.readWindow)

	expired, expErr := j.repo.DeleteExpired(ctx, now)
	read, readErr := j.repo.DeleteReadBefore(ctx, cutoff)
	if err := multierr.Append(expErr, readErr); err != nil {
		return expired + read, fmt.Errorf("notification expiry: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"read_cutoff":  cutoff,
		"expired_rows": expired,
		"read_rows":    read,
	})
	j.logg.Info(logCtx, "notification expiry complete")
	return expired + read, nil
}
