package checks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/internal/checkitems"
	"github.com/gestion-ambientes/ambientes-backend/internal/dbtest"
	"github.com/gestion-ambientes/ambientes-backend/internal/directory"
	"github.com/gestion-ambientes/ambientes-backend/internal/reviews"
	"github.com/gestion-ambientes/ambientes-backend/pkg/auth"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

var bogota = mustLoad("America/Bogota")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// 2026-03-10 is a Tuesday; 14:00 in Bogota.
var testNow = time.Date(2026, 3, 10, 14, 0, 0, 0, bogota)

var testDay = types.Date{Year: 2026, Month: time.March, Day: 10}

type fixture struct {
	conn       *gorm.DB
	svc        Service
	env        models.Environment
	schedule   models.Schedule
	instructor auth.Actor
	student    auth.Actor
	supervisor auth.Actor
	admin      auth.Actor
}

type fixtureOption func(*ServiceParams)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{conn: conn}
	instructor := dbtest.SeedUser(t, conn, enums.UserRoleInstructor)
	student := dbtest.SeedUser(t, conn, enums.UserRoleStudent)
	supervisor := dbtest.SeedUser(t, conn, enums.UserRoleSupervisor)
	admin := dbtest.SeedUser(t, conn, enums.UserRoleAdmin)
	f.instructor = auth.Actor{UserID: instructor.ID, Role: enums.UserRoleInstructor}
	f.student = auth.Actor{UserID: student.ID, Role: enums.UserRoleStudent}
	f.supervisor = auth.Actor{UserID: supervisor.ID, Role: enums.UserRoleSupervisor}
	f.admin = auth.Actor{UserID: admin.ID, Role: enums.UserRoleAdmin}

	f.env = dbtest.SeedEnvironment(t, conn)
	f.schedule = dbtest.SeedSchedule(t, conn, f.env.ID, &instructor.ID, models.ISOWeekday(testNow.Weekday()), "07:00:00", "12:00:00")

	params := ServiceParams{
		Repo:             NewTracedRepository(NewRepository(conn)),
		Aggregator:       NewAggregator(checkitems.NewRepository(conn), bogota),
		Directory:        directory.NewRepository(conn),
		Reviews:          reviews.NewRecorder(reviews.NewRepository(conn)),
		Events:           outbox.NewService(outbox.NewRepository(conn), nil),
		TX:               db.FromConn(conn),
		Location:         bogota,
		Now:              func() time.Time { return testNow },
		InitiateRetries:  1,
		SubmitOnInitiate: true,
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) scan(t *testing.T, status enums.CheckItemCondition, found, damaged, missing int) {
	t.Helper()
	row := models.InventoryCheckItem{
		ID:              uuid.New(),
		ItemID:          uuid.New(),
		EnvironmentID:   f.env.ID,
		Status:          status,
		QuantityFound:   found,
		QuantityDamaged: damaged,
		QuantityMissing: missing,
		CreatedAt:       testNow.Add(-time.Hour).UTC(),
	}
	require.NoError(t, f.conn.Create(&row).Error)
}

func (f *fixture) initiateReq() InitiateRequest {
	return InitiateRequest{EnvironmentID: f.env.ID, ScheduleID: &f.schedule.ID}
}

func (f *fixture) eventTypes(t *testing.T) []enums.OutboxEventType {
	t.Helper()
	var kinds []enums.OutboxEventType
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Pluck("event_type", &kinds).Error)
	return kinds
}

func (f *fixture) countChecks(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.InventoryCheck{}).Count(&n).Error)
	return n
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return ""
}

func TestScenarioCleanInventoryCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		f.scan(t, enums.CheckItemGood, 1, 0, 0)
	}

	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, enums.CheckStatusInstructorReview, res.Status)
	assert.Equal(t, 10, res.Check.TotalItems)
	assert.Equal(t, 10, res.Check.ItemsGood)
	require.NotNil(t, res.Check.StudentID)
	assert.Equal(t, f.student.UserID, *res.Check.StudentID)
	assert.NotNil(t, res.Check.StudentConfirmedAt)
	assert.Equal(t, testDay, res.Check.CheckDate)

	confirmed, err := f.svc.Confirm(ctx, f.instructor, res.CheckID, ConfirmRequest{
		IsClean: boolPtr(true), IsOrganized: boolPtr(true), InventoryComplete: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusSupervisorReview, confirmed.Status)
	require.NotNil(t, confirmed.InstructorID)
	assert.Equal(t, f.instructor.UserID, *confirmed.InstructorID)
	assert.Equal(t, 2, confirmed.Version)

	approved, err := f.svc.Approve(ctx, f.supervisor, res.CheckID, ApproveRequest{
		Decision: enums.ReviewDecisionApproved, Comments: strPtr("  todo en orden "),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusComplete, approved.Status)
	require.NotNil(t, approved.SupervisorComments)
	assert.Equal(t, "todo en orden", *approved.SupervisorComments)

	assert.ElementsMatch(t, []enums.OutboxEventType{
		enums.EventCheckPendingInstructor,
		enums.EventCheckEscalated,
		enums.EventCheckReviewed,
	}, f.eventTypes(t))

	history, err := f.svc.Reviews(ctx, f.admin, res.CheckID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enums.ReviewDecisionApproved, history[0].Decision)
}

func strPtr(s string) *string { return &s }

func TestScenarioDamagedItemsStayInIssues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.scan(t, enums.CheckItemGood, 8, 0, 0)
	f.scan(t, enums.CheckItemDamaged, 0, 2, 0)

	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusIssues, res.Status)
	assert.Equal(t, 2, res.Check.ItemsDamaged)
	assert.ElementsMatch(t, []enums.OutboxEventType{
		enums.EventCheckPendingInstructor,
		enums.EventCheckEscalated,
	}, f.eventTypes(t))

	approved, err := f.svc.Approve(ctx, f.supervisor, res.CheckID, ApproveRequest{
		Decision: enums.ReviewDecisionApproved, InventoryComplete: boolPtr(true), ItemsDamaged: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusIssues, approved.Status)

	var reviewsCount int64
	require.NoError(t, f.conn.Model(&models.SupervisorReview{}).Count(&reviewsCount).Error)
	assert.EqualValues(t, 1, reviewsCount)
}

func intPtr(v int) *int { return &v }

func TestScenarioSupervisorInitiatesWithFallback(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.InitiateStrict(context.Background(), f.supervisor, f.initiateReq())
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusSupervisorReview, res.Status)
	require.NotNil(t, res.Check.InstructorID)
	assert.Equal(t, f.supervisor.UserID, *res.Check.InstructorID)
	assert.NotNil(t, res.Check.InstructorConfirmedAt)
	assert.Nil(t, res.Check.StudentID)
	assert.Nil(t, res.Check.SupervisorID)
	assert.Empty(t, f.eventTypes(t))
}

func TestIssuesIsSticky(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.scan(t, enums.CheckItemMissing, 0, 0, 1)

	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)
	require.Equal(t, enums.CheckStatusIssues, res.Status)

	confirmed, err := f.svc.Confirm(ctx, f.instructor, res.CheckID, ConfirmRequest{InventoryComplete: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusIssues, confirmed.Status)

	_, err = f.svc.AssignRole(ctx, f.admin, res.CheckID, AssignRoleRequest{Role: enums.UserRoleSupervisor})
	assert.Equal(t, pkgerrors.CodeStateConflict, codeOf(err))

	done, err := f.svc.Approve(ctx, f.supervisor, res.CheckID, ApproveRequest{
		Decision: enums.ReviewDecisionApproved, InventoryComplete: boolPtr(true), ItemsMissing: intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusComplete, done.Status)
	assert.Equal(t, 0, done.ItemsMissing)
}

func TestConfirmSlotExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleInstructor}

	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)
	require.Equal(t, enums.CheckStatusStudentPending, res.Status, "no scans keeps the student pass open")

	first, err := f.svc.Confirm(ctx, f.instructor, res.CheckID, ConfirmRequest{InventoryComplete: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusIssues, first.Status)

	_, err = f.svc.Confirm(ctx, other, res.CheckID, ConfirmRequest{InventoryComplete: boolPtr(true)})
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err))

	_, err = f.svc.Confirm(ctx, f.supervisor, res.CheckID, ConfirmRequest{InventoryComplete: boolPtr(true)})
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err), "fallback only applies to unconfirmed passes")

	again, err := f.svc.Confirm(ctx, f.instructor, res.CheckID, ConfirmRequest{InventoryComplete: boolPtr(true), Comments: strPtr("revisado")})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusIssues, again.Status)
	require.NotNil(t, again.Comments)
	assert.Equal(t, "revisado", *again.Comments)
}

func TestApproveSlotExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.scan(t, enums.CheckItemDamaged, 0, 1, 0)
	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.supervisor, res.CheckID, ApproveRequest{Decision: enums.ReviewDecisionApproved})
	require.NoError(t, err)

	other := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleSupervisor}
	_, err = f.svc.Approve(ctx, other, res.CheckID, ApproveRequest{Decision: enums.ReviewDecisionRejected})
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err))

	rejected, err := f.svc.Approve(ctx, f.supervisor, res.CheckID, ApproveRequest{Decision: enums.ReviewDecisionRejected})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusRejected, rejected.Status)

	history, err := f.svc.Reviews(ctx, f.supervisor, res.CheckID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRetriedConfirmAndApproveAreNoOps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.scan(t, enums.CheckItemGood, 1, 0, 0)
	}
	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)
	require.Equal(t, enums.CheckStatusInstructorReview, res.Status)

	confirm := ConfirmRequest{IsClean: boolPtr(true), IsOrganized: boolPtr(true), InventoryComplete: boolPtr(true)}
	first, err := f.svc.Confirm(ctx, f.instructor, res.CheckID, confirm)
	require.NoError(t, err)
	require.Equal(t, enums.CheckStatusSupervisorReview, first.Status)

	again, err := f.svc.Confirm(ctx, f.instructor, res.CheckID, confirm)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusSupervisorReview, again.Status)
	assert.Equal(t, first.Version, again.Version)

	_, err = f.svc.Confirm(ctx, auth.Actor{UserID: uuid.New(), Role: enums.UserRoleInstructor}, res.CheckID, confirm)
	assert.Equal(t, pkgerrors.CodeStateConflict, codeOf(err), "only the slot holder gets the no-op")

	approve := ApproveRequest{Decision: enums.ReviewDecisionApproved, Comments: strPtr("  ok  ")}
	approved, err := f.svc.Approve(ctx, f.supervisor, res.CheckID, approve)
	require.NoError(t, err)
	require.Equal(t, enums.CheckStatusComplete, approved.Status)

	replayed, err := f.svc.Approve(ctx, f.supervisor, res.CheckID, approve)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusComplete, replayed.Status)
	assert.Equal(t, approved.Version, replayed.Version)

	history, err := f.svc.Reviews(ctx, f.supervisor, res.CheckID)
	require.NoError(t, err)
	require.Len(t, history, 1, "a replayed approval appends no review")
	require.NotNil(t, history[0].Comments)
	assert.Equal(t, "ok", *history[0].Comments)
}

func TestSupervisorFallbackConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, f.supervisor, res.CheckID, ConfirmRequest{InventoryComplete: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusSupervisorReview, confirmed.Status)
	require.NotNil(t, confirmed.InstructorID)
	assert.Equal(t, f.supervisor.UserID, *confirmed.InstructorID)
	assert.NotNil(t, confirmed.InstructorConfirmedAt)
}

func TestRoleChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitiateStrict(ctx, f.admin, f.initiateReq())
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, f.student, res.CheckID, ConfirmRequest{InventoryComplete: boolPtr(true)})
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	_, err = f.svc.Approve(ctx, f.instructor, res.CheckID, ApproveRequest{Decision: enums.ReviewDecisionApproved})
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	_, err = f.svc.Approve(ctx, f.supervisor, res.CheckID, ApproveRequest{Decision: enums.ReviewDecisionApproved})
	assert.Equal(t, pkgerrors.CodeStateConflict, codeOf(err), "student_pending is not reviewable")

	_, err = f.svc.Confirm(ctx, f.instructor, uuid.New(), ConfirmRequest{InventoryComplete: boolPtr(true)})
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))
}

func TestInitiateReferenceChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitiateStrict(ctx, f.instructor, InitiateRequest{EnvironmentID: uuid.New()})
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))

	missing := uuid.New()
	_, err = f.svc.InitiateStrict(ctx, f.instructor, InitiateRequest{EnvironmentID: f.env.ID, ScheduleID: &missing})
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))

	_, err = f.svc.InitiateStrict(ctx, f.instructor, InitiateRequest{EnvironmentID: f.env.ID, ScheduleID: &f.schedule.ID, StudentID: &f.supervisor.UserID})
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err), "student_id must reference a student")

	_, err = f.svc.InitiateStrict(ctx, f.student, InitiateRequest{EnvironmentID: f.env.ID, ScheduleID: &f.schedule.ID, StudentID: &missing})
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	other := dbtest.SeedEnvironment(t, f.conn)
	_, err = f.svc.InitiateStrict(ctx, f.instructor, InitiateRequest{EnvironmentID: other.ID, ScheduleID: &f.schedule.ID})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	_, err = f.svc.InitiateBySchedule(ctx, f.instructor, InitiateRequest{EnvironmentID: f.env.ID})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}

func TestInitiateStrictRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)

	_, err = f.svc.InitiateStrict(ctx, f.instructor, f.initiateReq())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err))
	assert.EqualValues(t, 1, f.countChecks(t))
}

func TestInitiateBySchedulePathsUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.InitiateBySchedule(ctx, f.student, f.initiateReq())
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, enums.CheckStatusStudentPending, first.Status)

	f.scan(t, enums.CheckItemGood, 4, 0, 0)
	req := f.initiateReq()
	req.CleaningNotes = strPtr("piso limpio")
	second, err := f.svc.InitiateBySchedule(ctx, f.student, req)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.CheckID, second.CheckID)
	assert.Equal(t, enums.CheckStatusInstructorReview, second.Status)
	assert.Equal(t, 1, second.Check.TotalItems)
	require.NotNil(t, second.Check.CleaningNotes)
	assert.Equal(t, "piso limpio", *second.Check.CleaningNotes)

	third, err := f.svc.InitiateBySchedule(ctx, f.student, f.initiateReq())
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusInstructorReview, third.Status, "repeat by the slot holder is a no-op")

	req = f.initiateReq()
	req.InventoryComplete = boolPtr(true)
	req.IsClean = boolPtr(true)
	fourth, err := f.svc.InitiateBySchedule(ctx, f.instructor, req)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusSupervisorReview, fourth.Status)

	intruder := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleStudent}
	_, err = f.svc.InitiateBySchedule(ctx, intruder, f.initiateReq())
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err))

	assert.EqualValues(t, 1, f.countChecks(t))
}

func TestInitiateByScheduleInstructorConfirmsInOneCall(t *testing.T) {
	f := newFixture(t)
	req := f.initiateReq()
	req.InventoryComplete = boolPtr(false)
	res, err := f.svc.InitiateBySchedule(context.Background(), f.instructor, req)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusIssues, res.Status)
	require.NotNil(t, res.Check.InstructorConfirmedAt)
	assert.Equal(t, []enums.OutboxEventType{enums.EventCheckEscalated}, f.eventTypes(t))
}

// racingRepo hides the existing row from the first lookups so the insert
// collides with the unique index, as when two requests race.
type racingRepo struct {
	Repository
	misses *int
}

func (r racingRepo) WithTx(tx *gorm.DB) Repository {
	return racingRepo{Repository: r.Repository.WithTx(tx), misses: r.misses}
}

func (r racingRepo) FindByTriple(ctx context.Context, environmentID uuid.UUID, scheduleID *uuid.UUID, day types.Date) (*models.InventoryCheck, error) {
	if *r.misses > 0 {
		*r.misses--
		return nil, nil
	}
	return r.Repository.FindByTriple(ctx, environmentID, scheduleID, day)
}

func TestInitiateBySchedulesRetriesLostInsertAsUpdate(t *testing.T) {
	misses := 0
	f := newFixture(t, func(p *ServiceParams) {
		p.Repo = racingRepo{Repository: p.Repo, misses: &misses}
	})
	ctx := context.Background()

	_, err := f.svc.InitiateBySchedule(ctx, f.student, f.initiateReq())
	require.NoError(t, err)

	f.scan(t, enums.CheckItemGood, 1, 0, 0)
	misses = 1
	res, err := f.svc.InitiateBySchedule(ctx, f.student, f.initiateReq())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, enums.CheckStatusInstructorReview, res.Status)
	assert.EqualValues(t, 1, f.countChecks(t))

	misses = 1
	_, err = f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err))
}

func TestInitiateBySchedulesGivesUpAfterRetries(t *testing.T) {
	misses := 0
	f := newFixture(t, func(p *ServiceParams) {
		p.Repo = racingRepo{Repository: p.Repo, misses: &misses}
		p.InitiateRetries = 0
	})
	ctx := context.Background()

	_, err := f.svc.InitiateBySchedule(ctx, f.student, f.initiateReq())
	require.NoError(t, err)

	misses = 1
	_, err = f.svc.InitiateBySchedule(ctx, f.student, f.initiateReq())
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err))
}

func TestConcurrentInitiatesCreateOneCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.InitiateBySchedule(ctx, f.student, f.initiateReq())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if res.Created {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 1, created)
	assert.EqualValues(t, 1, f.countChecks(t))
}

func TestStaleVersionIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)

	repo := NewRepository(f.conn)
	ok, err := repo.UpdateVersioned(ctx, res.CheckID, 1, map[string]any{"comments": "primero"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateVersioned(ctx, res.CheckID, 1, map[string]any{"comments": "segundo"})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, res.CheckID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	require.NotNil(t, stored.Comments)
	assert.Equal(t, "primero", *stored.Comments)
}

func TestAssignRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.scan(t, enums.CheckItemGood, 1, 0, 0)
	res, err := f.svc.InitiateStrict(ctx, f.student, f.initiateReq())
	require.NoError(t, err)

	other := dbtest.SeedUser(t, f.conn, enums.UserRoleSupervisor)
	moved, err := f.svc.AssignRole(ctx, f.admin, res.CheckID, AssignRoleRequest{Role: enums.UserRoleSupervisor, UserID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusSupervisorReview, moved.Status)
	require.NotNil(t, moved.SupervisorID)
	assert.Equal(t, other.ID, *moved.SupervisorID)

	_, err = f.svc.AssignRole(ctx, f.instructor, res.CheckID, AssignRoleRequest{Role: enums.UserRoleInstructor})
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	_, err = f.svc.AssignRole(ctx, f.admin, res.CheckID, AssignRoleRequest{Role: enums.UserRoleInstructor, UserID: &other.ID})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	_, err = f.svc.AssignRole(ctx, f.admin, res.CheckID, AssignRoleRequest{Role: enums.UserRoleStudent})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	_, err = f.svc.Approve(ctx, f.supervisor, res.CheckID, ApproveRequest{Decision: enums.ReviewDecisionApproved})
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err), "assigned supervisor holds the slot")
}

func seedCheck(t *testing.T, conn *gorm.DB, envID uuid.UUID, schedule *uuid.UUID, day types.Date, status enums.InventoryCheckStatus, mutate func(*models.InventoryCheck)) models.InventoryCheck {
	t.Helper()
	check := models.InventoryCheck{
		ID:            uuid.New(),
		EnvironmentID: envID,
		ScheduleID:    schedule,
		CheckDate:     day,
		CheckTime:     testNow.UTC(),
		Status:        status,
		Version:       1,
		CreatedAt:     testNow.UTC(),
		UpdatedAt:     testNow.UTC(),
	}
	if mutate != nil {
		mutate(&check)
	}
	require.NoError(t, conn.Create(&check).Error)
	return check
}

func TestListAppliesVisibilityAndShift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	night := dbtest.SeedSchedule(t, f.conn, f.env.ID, nil, 2, "18:00:00", "22:00:00")
	afternoon := dbtest.SeedSchedule(t, f.conn, f.env.ID, nil, 2, "13:00:00", "17:00:00")

	own := seedCheck(t, f.conn, f.env.ID, &f.schedule.ID, testDay, enums.CheckStatusComplete, func(c *models.InventoryCheck) {
		c.StudentID = &f.student.UserID
	})
	pending := seedCheck(t, f.conn, f.env.ID, &night.ID, testDay, enums.CheckStatusInstructorReview, nil)
	escalated := seedCheck(t, f.conn, f.env.ID, &afternoon.ID, testDay, enums.CheckStatusIssues, nil)

	ids := func(res *ListResult) []uuid.UUID {
		out := []uuid.UUID{}
		for _, c := range res.Items {
			out = append(out, c.ID)
		}
		return out
	}

	res, err := f.svc.List(ctx, f.student, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{own.ID}, ids(res))

	res, err = f.svc.List(ctx, f.instructor, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{pending.ID}, ids(res))

	res, err = f.svc.List(ctx, f.supervisor, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{escalated.ID}, ids(res))

	res, err = f.svc.List(ctx, f.admin, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)

	shift := enums.ShiftNight
	res, err = f.svc.List(ctx, f.admin, ListFilter{Shift: &shift})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{pending.ID}, ids(res))

	status := enums.CheckStatusIssues
	res, err = f.svc.List(ctx, f.admin, ListFilter{Status: &status, EnvironmentID: &f.env.ID, Date: &testDay})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{escalated.ID}, ids(res))

	_, err = f.svc.Get(ctx, f.student, pending.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))

	got, err := f.svc.Get(ctx, f.instructor, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)
}

func TestListShiftBoundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	noon := dbtest.SeedSchedule(t, f.conn, f.env.ID, nil, 3, "12:00:00", "13:00:00")
	evening := dbtest.SeedSchedule(t, f.conn, f.env.ID, nil, 3, "22:00:00", "23:00:00")
	other := dbtest.SeedEnvironment(t, f.conn)
	elsewhere := dbtest.SeedSchedule(t, f.conn, other.ID, nil, 3, "08:00:00", "09:00:00")

	morning := seedCheck(t, f.conn, f.env.ID, &f.schedule.ID, testDay, enums.CheckStatusComplete, nil)
	seedCheck(t, f.conn, f.env.ID, &noon.ID, testDay, enums.CheckStatusComplete, nil)
	late := seedCheck(t, f.conn, f.env.ID, &evening.ID, testDay, enums.CheckStatusComplete, nil)
	seedCheck(t, f.conn, other.ID, &elsewhere.ID, testDay, enums.CheckStatusComplete, nil)

	list := func(shift enums.Shift) []uuid.UUID {
		res, err := f.svc.List(ctx, f.admin, ListFilter{Shift: &shift, EnvironmentID: &f.env.ID})
		require.NoError(t, err)
		out := []uuid.UUID{}
		for _, c := range res.Items {
			out = append(out, c.ID)
		}
		return out
	}

	assert.Equal(t, []uuid.UUID{morning.ID}, list(enums.ShiftMorning), "morning ends before 12:00")
	assert.Empty(t, list(enums.ShiftAfternoon))
	assert.Equal(t, []uuid.UUID{late.ID}, list(enums.ShiftNight), "night includes 22:00")
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		day := testDay.AddDays(-i)
		seedCheck(t, f.conn, f.env.ID, nil, day, enums.CheckStatusComplete, func(c *models.InventoryCheck) {
			c.CreatedAt = testNow.UTC().Add(-time.Duration(i) * time.Hour)
		})
	}

	page, err := f.svc.List(ctx, f.admin, ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.Equal(t, testDay, page.Items[0].CheckDate)

	rest, err := f.svc.List(ctx, f.admin, ListFilter{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)
	assert.Equal(t, testDay.AddDays(-2), rest.Items[0].CheckDate)

	_, err = f.svc.List(ctx, f.admin, ListFilter{Cursor: "%%%"})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedCheck(t, f.conn, f.env.ID, nil, testDay, enums.CheckStatusComplete, func(c *models.InventoryCheck) {
		c.TotalItems, c.ItemsGood = 2, 2
		c.StudentID = &f.student.UserID
	})
	seedCheck(t, f.conn, f.env.ID, nil, testDay.AddDays(-1), enums.CheckStatusIssues, func(c *models.InventoryCheck) {
		c.TotalItems, c.ItemsDamaged = 1, 1
	})

	stats, err := f.svc.Stats(ctx, f.admin, StatsFilter{EnvironmentID: &f.env.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalVerifications)
	assert.EqualValues(t, 1, stats.StatusDistribution[enums.CheckStatusComplete])
	assert.EqualValues(t, 1, stats.StatusDistribution[enums.CheckStatusIssues])
	assert.EqualValues(t, 0, stats.StatusDistribution[enums.CheckStatusRejected])
	assert.EqualValues(t, 3, stats.ItemsSummary.TotalChecked)
	assert.Equal(t, "66.67", stats.ItemsSummary.GoodPercentage.StringFixed(2))

	start := testDay
	stats, err = f.svc.Stats(ctx, f.admin, StatsFilter{StartDate: &start})
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalVerifications)

	stats, err = f.svc.Stats(ctx, f.student, StatsFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalVerifications)

	end := testDay.AddDays(-3)
	_, err = f.svc.Stats(ctx, f.admin, StatsFilter{StartDate: &start, EndDate: &end})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}

func TestGoodPercentage(t *testing.T) {
	assert.True(t, GoodPercentage(0, 0).IsZero())
	assert.Equal(t, "100", GoodPercentage(4, 4).String())
	assert.Equal(t, "33.33", GoodPercentage(1, 3).String())
}

func TestByScheduleAndScheduleStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	weekday := models.ISOWeekday(testNow.Weekday())
	second := dbtest.SeedSchedule(t, f.conn, f.env.ID, nil, weekday, "13:00:00", "18:00:00")
	dbtest.SeedSchedule(t, f.conn, f.env.ID, nil, weekday%7+1, "07:00:00", "12:00:00")

	check := seedCheck(t, f.conn, f.env.ID, &second.ID, testDay, enums.CheckStatusSupervisorReview, nil)

	view, err := f.svc.BySchedule(ctx, f.student, f.env.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, testDay, view.Date)
	require.Len(t, view.Schedules, 2)
	assert.Equal(t, f.schedule.ID, view.Schedules[0].ScheduleID)
	assert.Nil(t, view.Schedules[0].Check)
	require.NotNil(t, view.Schedules[1].Check)
	assert.Equal(t, check.ID, view.Schedules[1].Check.ID)

	stats, err := f.svc.ScheduleStats(ctx, f.instructor, f.env.ID, &testDay)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SchedulesTotal)
	assert.Equal(t, 1, stats.SchedulesChecked)
	assert.Equal(t, 1, stats.SchedulesPending)
	assert.Equal(t, 1, stats.ByStatus[enums.CheckStatusSupervisorReview])
	assert.Equal(t, 0, stats.ByStatus[enums.CheckStatusComplete])

	_, err = f.svc.BySchedule(ctx, f.admin, uuid.New(), nil)
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))
}

func TestOutboxFailureDoesNotAbortTransition(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.conn.Exec("DROP TABLE outbox_events").Error)
	f.scan(t, enums.CheckItemGood, 1, 0, 0)

	res, err := f.svc.InitiateStrict(context.Background(), f.student, f.initiateReq())
	require.NoError(t, err)
	assert.Equal(t, enums.CheckStatusInstructorReview, res.Status)
	assert.EqualValues(t, 1, f.countChecks(t))
}
