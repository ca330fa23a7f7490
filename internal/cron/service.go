package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// JobTimeout bounds a single job. Zero means the cycle interval.
	JobTimeout time.Duration
}

// Service runs every registered job once per tick while holding the
// cluster-wide lock. A failing job never stops the rest of the cycle.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	svc := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if svc.registry == nil {
		svc.registry = &Registry{}
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	if svc.jobTimeout <= 0 {
		svc.jobTimeout = svc.interval
	}
	return svc, nil
}

// Run executes a cycle immediately and then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logg.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes one locked cycle. It returns nil when another instance
// holds the lock.
func (s *Service) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron.cycle_skipped")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	cycleCtx := s.logg.WithField(ctx, "cycle_id", uuid.NewString())
	failed := 0
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			break
		}
		if !s.runJob(cycleCtx, job) {
			failed++
		}
	}
	s.logg.Info(s.logg.WithFields(cycleCtx, map[string]any{
		"jobs":   len(s.registry.Jobs()),
		"failed": failed,
	}), "cron.cycle_complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", job.Name()), s.jobTimeout)
	defer cancel()

	start := time.Now()
	rows, err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.Observe(job.Name(), elapsed, rows, err)

	logCtx := s.logg.WithFields(jobCtx, map[string]any{
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		s.logg.Error(logCtx, "cron.job_failed", err)
		return false
	}
	s.logg.Info(logCtx, "cron.job_complete")
	return true
}
