package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

const (
	outboxRetentionDays  = 30
	outboxRetentionBatch = 500
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxPurger
	// Retention is in days; published rows older than that are removed.
	Retention int
	BatchSize int
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// NewOutboxRetentionJob purges delivered outbox rows in bounded batches so a
// large backlog never holds one long delete.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = outboxRetentionBatch
	}
	return &outboxRetentionJob{
		logg:   params.Logger,
		repo:   params.Repository,
		window: daysWindow(params.Retention, outboxRetentionDays),
		batch:  batch,
		now:    time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg   *logger.Logger
	repo   outboxPurger
	window time.Duration
	batch  int
	now    func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.window)
	var total int64
	for passes := 0; ; passes++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := j.repo.DeletePublishedBefore(ctx, cutoff, j.batch)
		total += n
		if err != nil {
			return total, fmt.Errorf("purge published outbox rows: %w", err)
		}
		if n < int64(j.batch) {
			j.logg.Info(j.logg.WithFields(ctx, map[string]any{
				"cutoff":  cutoff,
				"deleted": total,
				"passes":  passes + 1,
			}), "outbox.retention_done")
			return total, nil
		}
	}
}

// daysWindow turns a configured day count into a duration, falling back to
// def when the setting is unset.
func daysWindow(days, def int) time.Duration {
	if days <= 0 {
		days = def
	}
	return time.Duration(days) * 24 * time.Hour
}
