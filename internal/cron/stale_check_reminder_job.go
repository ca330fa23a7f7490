package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/internal/checks"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox"
)

const (
	defaultStaleAfter = 4 * time.Hour
	reminderScope     = "check-reminder"
	reminderBatch     = 100
)

var remindableStatuses = []enums.InventoryCheckStatus{
	enums.CheckStatusStudentPending,
	enums.CheckStatusInstructorReview,
	enums.CheckStatusSupervisorReview,
}

// StaleCheckReminderJobParams wires the stale check reminder job.
type StaleCheckReminderJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Checks     staleCheckSource
	Directory  reminderDirectory
	Outbox     outboxEmitter
	Marker     reminderMarker
	StaleAfter time.Duration
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type staleCheckSource interface {
	ListStale(ctx context.Context, statuses []enums.InventoryCheckStatus, updatedBefore time.Time, limit int) ([]models.InventoryCheck, error)
}

type reminderDirectory interface {
	FindSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	ActiveUserIDsByRole(ctx context.Context, roles ...enums.UserRole) ([]uuid.UUID, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// reminderMarker claims a (scope, id) pair once per ttl.
type reminderMarker interface {
	MarkOnce(ctx context.Context, scope, id string, ttl time.Duration) (bool, error)
}

// NewStaleCheckReminderJob queues a check_reminder event for every check
// stuck in an open status, at most once per check per day.
func NewStaleCheckReminderJob(params StaleCheckReminderJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Checks == nil:
		return nil, fmt.Errorf("checks repository required")
	case params.Directory == nil:
		return nil, fmt.Errorf("directory required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox required")
	case params.Marker == nil:
		return nil, fmt.Errorf("reminder marker required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &staleCheckReminderJob{
		logg:       params.Logger,
		db:         params.DB,
		checks:     params.Checks,
		directory:  params.Directory,
		outbox:     params.Outbox,
		marker:     params.Marker,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

type staleCheckReminderJob struct {
	logg       *logger.Logger
	db         txRunner
	checks     staleCheckSource
	directory  reminderDirectory
	outbox     outboxEmitter
	marker     reminderMarker
	staleAfter time.Duration
	now        func() time.Time
}

func (j *staleCheckReminderJob) Name() string { return "stale-check-reminder" }

func (j *staleCheckReminderJob) Run(ctx context.Context) (int64, error) {
	now := j.now().UTC()
	stale, err := j.checks.ListStale(ctx, remindableStatuses, now.Add(-j.staleAfter), reminderBatch)
	if err != nil {
		return 0, fmt.Errorf("query stale checks: %w", err)
	}

	var (
		queued int64
		errs   error
	)
	for _, check := range stale {
		ok, err := j.remind(ctx, check, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("check %s: %w", check.ID, err))
			continue
		}
		if ok {
			queued++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stale":  len(stale),
		"queued": queued,
	})
	j.logg.Info(logCtx, "stale check reminders queued")
	return queued, errs
}

func (j *staleCheckReminderJob) remind(ctx context.Context, check models.InventoryCheck, now time.Time) (bool, error) {
	recipients, err := j.recipients(ctx, check)
	if err != nil {
		return false, err
	}
	if len(recipients) == 0 {
		return false, nil
	}

	first, err := j.marker.MarkOnce(ctx, reminderScope, check.ID.String()+":"+now.Format(time.DateOnly), 24*time.Hour)
	if err != nil {
		return false, fmt.Errorf("mark reminder: %w", err)
	}
	if !first {
		return false, nil
	}

	event := checks.ReminderEvent(check, recipients, now.Sub(check.UpdatedAt), now)
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, event)
	}); err != nil {
		return false, fmt.Errorf("queue reminder: %w", err)
	}
	return true, nil
}

// recipients returns whoever owns the next step of check.
func (j *staleCheckReminderJob) recipients(ctx context.Context, check models.InventoryCheck) ([]uuid.UUID, error) {
	switch check.Status {
	case enums.CheckStatusStudentPending:
		if check.StudentID != nil {
			return []uuid.UUID{*check.StudentID}, nil
		}
		return nil, nil
	case enums.CheckStatusInstructorReview:
		if check.InstructorID != nil {
			return []uuid.UUID{*check.InstructorID}, nil
		}
		if check.ScheduleID != nil {
			schedule, err := j.directory.FindSchedule(ctx, *check.ScheduleID)
			if err != nil {
				return nil, fmt.Errorf("load schedule: %w", err)
			}
			if schedule.InstructorID != nil {
				return []uuid.UUID{*schedule.InstructorID}, nil
			}
		}
	case enums.CheckStatusSupervisorReview:
		if check.SupervisorID != nil {
			return []uuid.UUID{*check.SupervisorID}, nil
		}
	default:
		return nil, nil
	}
	return j.directory.ActiveUserIDsByRole(ctx, enums.UserRoleSupervisor)
}
