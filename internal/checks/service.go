package checks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/internal/reviews"
	"github.com/gestion-ambientes/ambientes-backend/pkg/auth"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/metrics"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox"
	"github.com/gestion-ambientes/ambientes-backend/pkg/pagination"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
	"github.com/gestion-ambientes/ambientes-backend/pkg/visibility"
)

// Service is the verification workflow.
type Service interface {
	InitiateStrict(ctx context.Context, actor auth.Actor, req InitiateRequest) (*InitiateResult, error)
	InitiateBySchedule(ctx context.Context, actor auth.Actor, req InitiateRequest) (*InitiateResult, error)
	Confirm(ctx context.Context, actor auth.Actor, checkID uuid.UUID, req ConfirmRequest) (*CheckDTO, error)
	AssignRole(ctx context.Context, actor auth.Actor, checkID uuid.UUID, req AssignRoleRequest) (*CheckDTO, error)
	Approve(ctx context.Context, actor auth.Actor, checkID uuid.UUID, req ApproveRequest) (*CheckDTO, error)

	Get(ctx context.Context, actor auth.Actor, checkID uuid.UUID) (*CheckDTO, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter) (*ListResult, error)
	Reviews(ctx context.Context, actor auth.Actor, checkID uuid.UUID) ([]ReviewDTO, error)
	Stats(ctx context.Context, actor auth.Actor, filter StatsFilter) (*Stats, error)
	BySchedule(ctx context.Context, actor auth.Actor, environmentID uuid.UUID, day *types.Date) (*ByScheduleView, error)
	ScheduleStats(ctx context.Context, actor auth.Actor, environmentID uuid.UUID, day *types.Date) (*ScheduleStats, error)
}

type directoryReader interface {
	FindEnvironment(ctx context.Context, id uuid.UUID) (*models.Environment, error)
	FindSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListActiveSchedules(ctx context.Context, environmentID uuid.UUID, isoWeekday int) ([]models.Schedule, error)
}

type reviewRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, d reviews.Decision) (*models.SupervisorReview, error)
	History(ctx context.Context, checkID uuid.UUID) ([]models.SupervisorReview, error)
}

type eventEmitter interface {
	EmitBestEffort(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the workflow.
type ServiceParams struct {
	Repo       Repository
	Aggregator *Aggregator
	Directory  directoryReader
	Reviews    reviewRecorder
	Events     eventEmitter
	TX         txRunner
	Metrics    *metrics.WorkflowMetrics
	Logger     *logger.Logger
	Location   *time.Location
	Now        func() time.Time

	// InitiateRetries is how many times the by-schedule path retries after
	// losing the insert race on the unique triple.
	InitiateRetries int
	// SubmitOnInitiate applies the student pass when a student initiates and
	// the day already has scanned items.
	SubmitOnInitiate bool
}

type service struct {
	repo     Repository
	agg      *Aggregator
	dir      directoryReader
	reviews  reviewRecorder
	events   eventEmitter
	tx       txRunner
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
	loc      *time.Location
	now      func() time.Time
	retries  int
	submitOn bool
}

// step is one applied transition, recorded after commit.
type step struct {
	action enums.WorkflowAction
	from   enums.InventoryCheckStatus
	to     enums.InventoryCheckStatus
}

type initiateRefs struct {
	environment *models.Environment
	schedule    *models.Schedule
	studentID   *uuid.UUID
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory check repository required")
	case p.Aggregator == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "aggregator required")
	case p.Directory == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "directory required")
	case p.Reviews == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "review recorder required")
	case p.Events == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event emitter required")
	case p.TX == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	retries := p.InitiateRetries
	if retries < 0 {
		retries = 0
	}
	return &service{
		repo:     p.Repo,
		agg:      p.Aggregator,
		dir:      p.Directory,
		reviews:  p.Reviews,
		events:   p.Events,
		tx:       p.TX,
		metrics:  p.Metrics,
		logg:     p.Logger,
		loc:      loc,
		now:      now,
		retries:  retries,
		submitOn: p.SubmitOnInitiate,
	}, nil
}

func (s *service) today() types.Date {
	return types.DateOf(s.now().In(s.loc))
}

// InitiateStrict creates the day's check and fails with Conflict when one
// already exists for the triple.
func (s *service) InitiateStrict(ctx context.Context, actor auth.Actor, req InitiateRequest) (*InitiateResult, error) {
	return s.initiate(ctx, actor, req, false)
}

// InitiateBySchedule creates the day's check for a schedule or applies the
// actor's pass to the existing one.
func (s *service) InitiateBySchedule(ctx context.Context, actor auth.Actor, req InitiateRequest) (*InitiateResult, error) {
	if req.ScheduleID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "schedule_id is required")
	}
	return s.initiate(ctx, actor, req, true)
}

func (s *service) initiate(ctx context.Context, actor auth.Actor, req InitiateRequest, upsert bool) (*InitiateResult, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if _, err := Resolve(nil, actor.Role, enums.ActionInitiate, TransitionInput{}); err != nil {
		return nil, err
	}
	if req.EnvironmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "environment_id is required")
	}
	refs, err := s.resolveRefs(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	day := s.today()

	for attempt := 0; ; attempt++ {
		res, err := s.initiateOnce(ctx, actor, req, refs, day, upsert)
		if err == nil {
			return res, nil
		}
		if !db.IsUniqueViolation(err, UniqueTripleIndex) {
			return nil, err
		}
		s.metrics.Conflict(enums.ActionInitiate.String())
		if !upsert || attempt >= s.retries {
			return nil, duplicateCheck(nil)
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"environment_id": req.EnvironmentID.String(),
				"attempt":        attempt + 1,
			})
			s.logg.Warn(logCtx, "inventory check insert lost race, retrying as update")
		}
	}
}

func duplicateCheck(existing *models.InventoryCheck) error {
	err := pkgerrors.New(pkgerrors.CodeConflict, "an inventory check already exists for this environment, schedule and date")
	if existing != nil {
		err = err.WithDetails(map[string]any{"check_id": existing.ID, "status": existing.Status})
	}
	return err
}

func (s *service) resolveRefs(ctx context.Context, actor auth.Actor, req InitiateRequest) (initiateRefs, error) {
	var refs initiateRefs
	env, err := s.dir.FindEnvironment(ctx, req.EnvironmentID)
	if err != nil {
		return refs, lookupError(err, "environment")
	}
	refs.environment = env

	if req.ScheduleID != nil {
		schedule, err := s.dir.FindSchedule(ctx, *req.ScheduleID)
		if err != nil {
			return refs, lookupError(err, "schedule")
		}
		if schedule.EnvironmentID != env.ID {
			return refs, pkgerrors.New(pkgerrors.CodeValidation, "schedule does not belong to environment")
		}
		refs.schedule = schedule
	}

	switch {
	case actor.Role == enums.UserRoleStudent:
		if req.StudentID != nil && *req.StudentID != actor.UserID {
			return refs, pkgerrors.New(pkgerrors.CodeForbidden, "students can only initiate their own checks")
		}
		id := actor.UserID
		refs.studentID = &id
	case req.StudentID != nil:
		user, err := s.dir.FindUser(ctx, *req.StudentID)
		if err != nil {
			return refs, lookupError(err, "student")
		}
		if user.Role != enums.UserRoleStudent {
			return refs, pkgerrors.New(pkgerrors.CodeNotFound, "student not found")
		}
		id := user.ID
		refs.studentID = &id
	}
	return refs, nil
}

func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", what)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup "+what)
}

func (s *service) initiateOnce(ctx context.Context, actor auth.Actor, req InitiateRequest, refs initiateRefs, day types.Date, upsert bool) (*InitiateResult, error) {
	var (
		check   *models.InventoryCheck
		created bool
		steps   []step
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByTriple(ctx, req.EnvironmentID, req.ScheduleID, day)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup inventory check")
		}
		if existing != nil {
			if !upsert {
				return duplicateCheck(existing)
			}
			check, steps, err = s.updateExisting(ctx, tx, actor, existing, req, refs)
			return err
		}
		created = true
		check, steps, err = s.create(ctx, tx, actor, req, refs, day)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordSteps(ctx, actor, check.ID, steps)
	return &InitiateResult{
		CheckID: check.ID,
		Status:  check.Status,
		Created: created,
		Check:   NewCheckDTO(*check, s.loc),
	}, nil
}

// create inserts a fresh check. The student pass and an instructor's
// confirmation are applied in memory before the insert.
func (s *service) create(ctx context.Context, tx *gorm.DB, actor auth.Actor, req InitiateRequest, refs initiateRefs, day types.Date) (*models.InventoryCheck, []step, error) {
	initial, err := Resolve(nil, actor.Role, enums.ActionInitiate, TransitionInput{})
	if err != nil {
		return nil, nil, err
	}
	totals, err := s.agg.ForDay(ctx, tx, req.EnvironmentID, day)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate observations")
	}
	now := s.now().UTC()
	check := &models.InventoryCheck{
		ID:            uuid.New(),
		EnvironmentID: req.EnvironmentID,
		ScheduleID:    req.ScheduleID,
		StudentID:     refs.studentID,
		CheckDate:     day,
		CheckTime:     now,
		Status:        initial,
		CleaningNotes: cleanText(req.CleaningNotes),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	totals.apply(check)
	steps := []step{{action: enums.ActionInitiate, from: noState, to: initial}}

	switch actor.Role {
	case enums.UserRoleStudent:
		if s.submitOn && check.TotalItems > 0 {
			next, err := Resolve(check, actor.Role, enums.ActionSubmit, TransitionInput{})
			if err != nil {
				return nil, nil, err
			}
			check.StudentConfirmedAt = &now
			steps = append(steps, step{action: enums.ActionSubmit, from: check.Status, to: next})
			check.Status = next
		}
	case enums.UserRoleInstructor:
		check.InstructorID = &actor.UserID
		if conf := req.confirmation(); conf != nil {
			next, err := Resolve(check, actor.Role, enums.ActionConfirm, TransitionInput{InventoryComplete: conf.InventoryComplete})
			if err != nil {
				return nil, nil, err
			}
			applyConfirmation(check, *conf, now)
			steps = append(steps, step{action: enums.ActionConfirm, from: check.Status, to: next})
			check.Status = next
		}
	case enums.UserRoleSupervisor:
		check.InstructorID = &actor.UserID
		check.InstructorConfirmedAt = &now
	}

	if err := s.repo.WithTx(tx).Create(ctx, check); err != nil {
		if db.IsUniqueViolation(err, UniqueTripleIndex) {
			return nil, nil, err
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory check")
	}

	switch actor.Role {
	case enums.UserRoleStudent:
		s.events.EmitBestEffort(ctx, tx, pendingInstructorEvent(check, scheduleInstructor(refs.schedule), actor, now))
		if check.Status == enums.CheckStatusIssues {
			s.events.EmitBestEffort(ctx, tx, escalatedEvent(check, actor, now))
		}
	case enums.UserRoleInstructor:
		s.events.EmitBestEffort(ctx, tx, escalatedEvent(check, actor, now))
	}
	return check, steps, nil
}

func scheduleInstructor(schedule *models.Schedule) *uuid.UUID {
	if schedule == nil {
		return nil
	}
	return schedule.InstructorID
}

func applyConfirmation(check *models.InventoryCheck, req ConfirmRequest, now time.Time) {
	check.IsClean = req.IsClean
	check.IsOrganized = req.IsOrganized
	check.InventoryComplete = req.InventoryComplete
	check.Comments = cleanText(req.Comments)
	check.InstructorConfirmedAt = &now
}

// updateExisting is the update branch of the by-schedule path. A repeated
// call by the holder of the actor's slot after the check moved on returns
// the check unchanged.
func (s *service) updateExisting(ctx context.Context, tx *gorm.DB, actor auth.Actor, check *models.InventoryCheck, req InitiateRequest, refs initiateRefs) (*models.InventoryCheck, []step, error) {
	if actor.Role == enums.UserRoleStudent {
		return s.resubmit(ctx, tx, actor, check, req, refs)
	}
	conf := req.confirmation()
	if conf == nil {
		return check, nil, nil
	}
	updated, st, err := s.confirmTx(ctx, tx, actor, check, *conf)
	if err != nil {
		if alreadyConfirmedBy(check, actor, err) {
			return check, nil, nil
		}
		return nil, nil, err
	}
	return updated, []step{st}, nil
}

func holds(slot *uuid.UUID, userID uuid.UUID) bool {
	return slot != nil && *slot == userID
}

func (s *service) resubmit(ctx context.Context, tx *gorm.DB, actor auth.Actor, check *models.InventoryCheck, req InitiateRequest, refs initiateRefs) (*models.InventoryCheck, []step, error) {
	if check.StudentID != nil && *check.StudentID != actor.UserID {
		return nil, nil, slotTaken("student_id")
	}
	if check.Status != enums.CheckStatusStudentPending {
		if _, err := Resolve(check, actor.Role, enums.ActionSubmit, TransitionInput{}); err != nil {
			if holds(check.StudentID, actor.UserID) {
				return check, nil, nil
			}
			return nil, nil, err
		}
	}

	totals, err := s.agg.ForDay(ctx, tx, check.EnvironmentID, check.CheckDate)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate observations")
	}
	pending := *check
	totals.apply(&pending)

	now := s.now().UTC()
	updates := totals.updates()
	updates["student_id"] = actor.UserID
	updates["updated_at"] = now
	if notes := cleanText(req.CleaningNotes); notes != nil {
		updates["cleaning_notes"] = *notes
	}
	next := check.Status
	if s.submitOn && pending.TotalItems > 0 {
		next, err = Resolve(&pending, actor.Role, enums.ActionSubmit, TransitionInput{})
		if err != nil {
			return nil, nil, err
		}
		updates["status"] = next
		updates["student_confirmed_at"] = now
	}

	repo := s.repo.WithTx(tx)
	updated, err := s.writeVersioned(ctx, repo, check, enums.ActionSubmit, updates)
	if err != nil {
		return nil, nil, err
	}
	if next == check.Status {
		return updated, nil, nil
	}
	s.events.EmitBestEffort(ctx, tx, pendingInstructorEvent(updated, scheduleInstructor(refs.schedule), actor, now))
	if next == enums.CheckStatusIssues {
		s.events.EmitBestEffort(ctx, tx, escalatedEvent(updated, actor, now))
	}
	return updated, []step{{action: enums.ActionSubmit, from: check.Status, to: next}}, nil
}

func slotTaken(column string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "%s is already held by another user", column).
		WithDetails(map[string]any{"slot": column})
}

// Confirm records the instructor pass. Supervisors may take it when the
// instructor never did.
func (s *service) Confirm(ctx context.Context, actor auth.Actor, checkID uuid.UUID, req ConfirmRequest) (*CheckDTO, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if req.InventoryComplete == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory_complete is required")
	}
	var (
		check *models.InventoryCheck
		steps []step
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.load(ctx, s.repo.WithTx(tx), checkID)
		if err != nil {
			return err
		}
		updated, st, err := s.confirmTx(ctx, tx, actor, current, req)
		if err != nil {
			if alreadyConfirmedBy(current, actor, err) {
				check = current
				return nil
			}
			return err
		}
		check, steps = updated, []step{st}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordSteps(ctx, actor, check.ID, steps)
	dto := NewCheckDTO(*check, s.loc)
	return &dto, nil
}

// alreadyConfirmedBy reports a retried confirmation: the check has moved past
// the instructor pass and the actor is the one who confirmed it.
func alreadyConfirmedBy(check *models.InventoryCheck, actor auth.Actor, err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) &&
		check.InstructorConfirmedAt != nil && holds(check.InstructorID, actor.UserID)
}

// alreadyApprovedBy is the supervisor counterpart of alreadyConfirmedBy.
func alreadyApprovedBy(check *models.InventoryCheck, actor auth.Actor, err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) &&
		check.SupervisorConfirmedAt != nil && holds(check.SupervisorID, actor.UserID)
}

func (s *service) confirmTx(ctx context.Context, tx *gorm.DB, actor auth.Actor, check *models.InventoryCheck, req ConfirmRequest) (*models.InventoryCheck, step, error) {
	next, err := Resolve(check, actor.Role, enums.ActionConfirm, TransitionInput{InventoryComplete: req.InventoryComplete})
	if err != nil {
		return nil, step{}, err
	}
	if check.InstructorID != nil && *check.InstructorID != actor.UserID {
		// supervisors may take over an instructor pass that was never confirmed
		fallback := actor.Role == enums.UserRoleSupervisor && check.InstructorConfirmedAt == nil
		if !fallback {
			return nil, step{}, slotTaken("instructor_id")
		}
	}
	now := s.now().UTC()
	updates := map[string]any{
		"instructor_id":           actor.UserID,
		"is_clean":                req.IsClean,
		"is_organized":            req.IsOrganized,
		"inventory_complete":      req.InventoryComplete,
		"comments":                cleanText(req.Comments),
		"instructor_confirmed_at": now,
		"status":                  next,
		"updated_at":              now,
	}
	updated, err := s.writeVersioned(ctx, s.repo.WithTx(tx), check, enums.ActionConfirm, updates)
	if err != nil {
		return nil, step{}, err
	}
	if next != check.Status {
		s.events.EmitBestEffort(ctx, tx, escalatedEvent(updated, actor, now))
	}
	return updated, step{action: enums.ActionConfirm, from: check.Status, to: next}, nil
}

// AssignRole forces a check back to a review stage, optionally handing the
// stage's slot to another user.
func (s *service) AssignRole(ctx context.Context, actor auth.Actor, checkID uuid.UUID, req AssignRoleRequest) (*CheckDTO, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	target := req.target()
	if target == "" {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "role must be instructor or supervisor, got %q", req.Role)
	}
	if req.UserID != nil {
		user, err := s.dir.FindUser(ctx, *req.UserID)
		if err != nil {
			return nil, lookupError(err, "user")
		}
		if user.Role != req.Role {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "user does not hold role %s", req.Role)
		}
	}

	var (
		check *models.InventoryCheck
		st    step
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, checkID)
		if err != nil {
			return err
		}
		next, err := Resolve(current, actor.Role, enums.ActionAssignRole, TransitionInput{Target: target})
		if err != nil {
			return err
		}
		updates := map[string]any{
			"status":     next,
			"updated_at": s.now().UTC(),
		}
		if req.UserID != nil {
			if target == enums.CheckStatusInstructorReview {
				updates["instructor_id"] = *req.UserID
			} else {
				updates["supervisor_id"] = *req.UserID
			}
		}
		check, err = s.writeVersioned(ctx, repo, current, enums.ActionAssignRole, updates)
		st = step{action: enums.ActionAssignRole, from: current.Status, to: next}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordSteps(ctx, actor, check.ID, []step{st})
	dto := NewCheckDTO(*check, s.loc)
	return &dto, nil
}

// Approve records the supervisor decision and appends it to the review trail.
func (s *service) Approve(ctx context.Context, actor auth.Actor, checkID uuid.UUID, req ApproveRequest) (*CheckDTO, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	var (
		check *models.InventoryCheck
		steps []step
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, checkID)
		if err != nil {
			return err
		}
		in := TransitionInput{
			Decision:          req.Decision,
			InventoryComplete: current.InventoryComplete,
			ItemsDamaged:      current.ItemsDamaged,
			ItemsMissing:      current.ItemsMissing,
		}
		if req.InventoryComplete != nil {
			in.InventoryComplete = req.InventoryComplete
		}
		if req.ItemsDamaged != nil {
			in.ItemsDamaged = *req.ItemsDamaged
		}
		if req.ItemsMissing != nil {
			in.ItemsMissing = *req.ItemsMissing
		}
		if in.ItemsDamaged < 0 || in.ItemsMissing < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "counters must not be negative")
		}
		next, err := Resolve(current, actor.Role, enums.ActionApprove, in)
		if err != nil {
			if alreadyApprovedBy(current, actor, err) {
				check = current
				return nil
			}
			return err
		}
		if current.SupervisorID != nil && *current.SupervisorID != actor.UserID {
			return slotTaken("supervisor_id")
		}

		now := s.now().UTC()
		updates := map[string]any{
			"supervisor_id":           actor.UserID,
			"supervisor_comments":     cleanText(req.Comments),
			"supervisor_confirmed_at": now,
			"status":                  next,
			"updated_at":              now,
		}
		if req.InventoryComplete != nil {
			updates["inventory_complete"] = *req.InventoryComplete
		}
		if req.ItemsDamaged != nil {
			updates["items_damaged"] = *req.ItemsDamaged
		}
		if req.ItemsMissing != nil {
			updates["items_missing"] = *req.ItemsMissing
		}
		check, err = s.writeVersioned(ctx, repo, current, enums.ActionApprove, updates)
		if err != nil {
			return err
		}
		review, err := s.reviews.Record(ctx, tx, reviews.Decision{
			CheckID:      current.ID,
			SupervisorID: actor.UserID,
			Decision:     req.Decision,
			Comments:     cleanText(req.Comments),
			ReviewedAt:   now,
		})
		if err != nil {
			return err
		}
		s.events.EmitBestEffort(ctx, tx, reviewedEvent(check, review, actor, now))
		steps = []step{{action: enums.ActionApprove, from: current.Status, to: next}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordSteps(ctx, actor, check.ID, steps)
	dto := NewCheckDTO(*check, s.loc)
	return &dto, nil
}

func (s *service) load(ctx context.Context, repo Repository, checkID uuid.UUID) (*models.InventoryCheck, error) {
	check, err := repo.FindByID(ctx, checkID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory check not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory check")
	}
	return check, nil
}

// writeVersioned applies updates guarded by the check's version and returns
// the stored row.
func (s *service) writeVersioned(ctx context.Context, repo Repository, check *models.InventoryCheck, action enums.WorkflowAction, updates map[string]any) (*models.InventoryCheck, error) {
	ok, err := repo.UpdateVersioned(ctx, check.ID, check.Version, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory check")
	}
	if !ok {
		s.metrics.Conflict(action.String())
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "check was modified concurrently").
			WithDetails(map[string]any{"check_id": check.ID, "version": check.Version})
	}
	return s.load(ctx, repo, check.ID)
}

func (s *service) recordSteps(ctx context.Context, actor auth.Actor, checkID uuid.UUID, steps []step) {
	for _, st := range steps {
		s.metrics.Transition(st.action.String(), stateLabel(st.from), string(st.to))
		if s.logg == nil {
			continue
		}
		logCtx := s.logg.WithCheckID(ctx, checkID.String())
		logCtx = s.logg.WithTransition(logCtx, st.action.String(), stateLabel(st.from), string(st.to))
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"user_id":    actor.UserID.String(),
			"actor_role": actor.Role,
		})
		s.logg.Info(logCtx, "inventory check transitioned")
	}
}

func stateLabel(status enums.InventoryCheckStatus) string {
	if status == noState {
		return "none"
	}
	return string(status)
}

func (s *service) Get(ctx context.Context, actor auth.Actor, checkID uuid.UUID) (*CheckDTO, error) {
	check, err := s.visible(ctx, actor, checkID)
	if err != nil {
		return nil, err
	}
	dto := NewCheckDTO(*check, s.loc)
	return &dto, nil
}

func (s *service) visible(ctx context.Context, actor auth.Actor, checkID uuid.UUID) (*models.InventoryCheck, error) {
	scope, err := visibility.ScopeFor(actor.Role, actor.UserID)
	if err != nil {
		return nil, err
	}
	check, err := s.load(ctx, s.repo, checkID)
	if err != nil {
		return nil, err
	}
	if err := scope.EnsureVisible(check); err != nil {
		return nil, err
	}
	return check, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (*ListResult, error) {
	scope, err := visibility.ScopeFor(actor.Role, actor.UserID)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q := ListQuery{
		Scope:         scope,
		EnvironmentID: filter.EnvironmentID,
		Date:          filter.Date,
		Status:        filter.Status,
		Cursor:        cursor,
		Limit:         filter.Limit,
	}
	if filter.Shift != nil {
		if !filter.Shift.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid shift %q", *filter.Shift)
		}
		q.Shift = filter.Shift
	}
	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory checks")
	}
	page, next := pagination.Split(rows, filter.Limit, func(c models.InventoryCheck) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	out := &ListResult{Items: make([]CheckDTO, 0, len(page))}
	for _, c := range page {
		out.Items = append(out.Items, NewCheckDTO(c, s.loc))
	}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

func (s *service) Reviews(ctx context.Context, actor auth.Actor, checkID uuid.UUID) ([]ReviewDTO, error) {
	if _, err := s.visible(ctx, actor, checkID); err != nil {
		return nil, err
	}
	rows, err := s.reviews.History(ctx, checkID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supervisor reviews")
	}
	out := make([]ReviewDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, newReviewDTO(r))
	}
	return out, nil
}

// Stats summarizes the checks visible to actor.
func (s *service) Stats(ctx context.Context, actor auth.Actor, filter StatsFilter) (*Stats, error) {
	scope, err := visibility.ScopeFor(actor.Role, actor.UserID)
	if err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date must not be before start_date")
	}
	q := StatsQuery{
		Scope:         scope,
		EnvironmentID: filter.EnvironmentID,
		StartDate:     filter.StartDate,
		EndDate:       filter.EndDate,
	}
	counts, err := s.repo.CountByStatus(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count inventory checks")
	}
	sums, err := s.repo.SumItems(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum inventory checks")
	}

	stats := &Stats{StatusDistribution: map[enums.InventoryCheckStatus]int64{}}
	for _, status := range enums.AllInventoryCheckStatuses() {
		stats.StatusDistribution[status] = counts[status]
		stats.TotalVerifications += counts[status]
	}
	stats.ItemsSummary = ItemsSummary{
		TotalChecked:   sums.TotalChecked,
		GoodItems:      sums.GoodItems,
		DamagedItems:   sums.DamagedItems,
		MissingItems:   sums.MissingItems,
		GoodPercentage: GoodPercentage(sums.GoodItems, sums.TotalChecked),
	}
	return stats, nil
}

// BySchedule lists the environment's active schedules for day with their
// checks. Defaults to today.
func (s *service) BySchedule(ctx context.Context, actor auth.Actor, environmentID uuid.UUID, day *types.Date) (*ByScheduleView, error) {
	d, schedules, byID, err := s.dayBoard(ctx, actor, environmentID, day)
	if err != nil {
		return nil, err
	}
	view := &ByScheduleView{EnvironmentID: environmentID, Date: d, Schedules: make([]ScheduleCheck, 0, len(schedules))}
	for _, sch := range schedules {
		entry := ScheduleCheck{
			ScheduleID:   sch.ID,
			Program:      sch.Program,
			Ficha:        sch.Ficha,
			StartTime:    sch.StartTime,
			EndTime:      sch.EndTime,
			InstructorID: sch.InstructorID,
		}
		if c, ok := byID[sch.ID]; ok {
			dto := NewCheckDTO(c, s.loc)
			entry.Check = &dto
		}
		view.Schedules = append(view.Schedules, entry)
	}
	return view, nil
}

// ScheduleStats counts how many of the day's schedules have a check.
func (s *service) ScheduleStats(ctx context.Context, actor auth.Actor, environmentID uuid.UUID, day *types.Date) (*ScheduleStats, error) {
	d, schedules, byID, err := s.dayBoard(ctx, actor, environmentID, day)
	if err != nil {
		return nil, err
	}
	stats := &ScheduleStats{
		EnvironmentID:  environmentID,
		Date:           d,
		SchedulesTotal: len(schedules),
		ByStatus:       map[enums.InventoryCheckStatus]int{},
	}
	for _, status := range enums.AllInventoryCheckStatuses() {
		stats.ByStatus[status] = 0
	}
	for _, sch := range schedules {
		c, ok := byID[sch.ID]
		if !ok {
			continue
		}
		stats.SchedulesChecked++
		stats.ByStatus[c.Status]++
	}
	stats.SchedulesPending = stats.SchedulesTotal - stats.SchedulesChecked
	return stats, nil
}

func (s *service) dayBoard(ctx context.Context, actor auth.Actor, environmentID uuid.UUID, day *types.Date) (types.Date, []models.Schedule, map[uuid.UUID]models.InventoryCheck, error) {
	if !actor.Valid() {
		return types.Date{}, nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if environmentID == uuid.Nil {
		return types.Date{}, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "environment_id is required")
	}
	if _, err := s.dir.FindEnvironment(ctx, environmentID); err != nil {
		return types.Date{}, nil, nil, lookupError(err, "environment")
	}
	d := s.today()
	if day != nil && !day.IsZero() {
		d = *day
	}
	weekday := models.ISOWeekday(d.In(s.loc).Weekday())
	schedules, err := s.dir.ListActiveSchedules(ctx, environmentID, weekday)
	if err != nil {
		return d, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schedules")
	}
	checks, err := s.repo.ListForDay(ctx, environmentID, d)
	if err != nil {
		return d, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory checks")
	}
	byID := make(map[uuid.UUID]models.InventoryCheck, len(checks))
	for _, c := range checks {
		if c.ScheduleID != nil {
			byID[*c.ScheduleID] = c
		}
	}
	return d, schedules, byID, nil
}
