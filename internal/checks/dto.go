package checks

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

// InitiateRequest starts a check. Instructors and supervisors may send the
// confirmation fields so the by-schedule path can confirm in one call.
type InitiateRequest struct {
	EnvironmentID     uuid.UUID  `json:"environment_id" validate:"required"`
	ScheduleID        *uuid.UUID `json:"schedule_id,omitempty"`
	StudentID         *uuid.UUID `json:"student_id,omitempty"`
	CleaningNotes     *string    `json:"cleaning_notes,omitempty" validate:"omitempty,max=2000"`
	IsClean           *bool      `json:"is_clean,omitempty"`
	IsOrganized       *bool      `json:"is_organized,omitempty"`
	InventoryComplete *bool      `json:"inventory_complete,omitempty"`
	Comments          *string    `json:"comments,omitempty" validate:"omitempty,max=2000"`
}

func (r InitiateRequest) confirmation() *ConfirmRequest {
	if r.InventoryComplete == nil {
		return nil
	}
	return &ConfirmRequest{
		IsClean:           r.IsClean,
		IsOrganized:       r.IsOrganized,
		InventoryComplete: r.InventoryComplete,
		Comments:          r.Comments,
	}
}

// ConfirmRequest is the instructor pass.
type ConfirmRequest struct {
	IsClean           *bool   `json:"is_clean"`
	IsOrganized       *bool   `json:"is_organized"`
	InventoryComplete *bool   `json:"inventory_complete" validate:"required"`
	Comments          *string `json:"comments,omitempty" validate:"omitempty,max=2000"`
}

// AssignRoleRequest forces a check back to a review stage. UserID, when set,
// takes the slot of that stage.
type AssignRoleRequest struct {
	Role   enums.UserRole `json:"role" validate:"required,oneof=instructor supervisor"`
	UserID *uuid.UUID     `json:"user_id,omitempty"`
}

func (r AssignRoleRequest) target() enums.InventoryCheckStatus {
	switch r.Role {
	case enums.UserRoleInstructor:
		return enums.CheckStatusInstructorReview
	case enums.UserRoleSupervisor:
		return enums.CheckStatusSupervisorReview
	}
	return ""
}

// ApproveRequest is the supervisor decision. Omitted counters default to
// the values already on the check.
type ApproveRequest struct {
	Decision          enums.ReviewDecision `json:"decision" validate:"required,oneof=approved rejected"`
	Comments          *string              `json:"comments,omitempty" validate:"omitempty,max=2000"`
	InventoryComplete *bool                `json:"inventory_complete,omitempty"`
	ItemsDamaged      *int                 `json:"items_damaged,omitempty" validate:"omitempty,min=0"`
	ItemsMissing      *int                 `json:"items_missing,omitempty" validate:"omitempty,min=0"`
}

// ListFilter narrows GET /inventory-checks.
type ListFilter struct {
	EnvironmentID *uuid.UUID
	Date          *types.Date
	Shift         *enums.Shift
	Status        *enums.InventoryCheckStatus
	Limit         int
	Cursor        string
}

// StatsFilter narrows GET /inventory-checks/stats.
type StatsFilter struct {
	EnvironmentID *uuid.UUID
	StartDate     *types.Date
	EndDate       *types.Date
}

// CheckDTO is the API shape of an inventory check.
type CheckDTO struct {
	ID                    uuid.UUID                  `json:"id"`
	EnvironmentID         uuid.UUID                  `json:"environment_id"`
	ScheduleID            *uuid.UUID                 `json:"schedule_id"`
	StudentID             *uuid.UUID                 `json:"student_id"`
	InstructorID          *uuid.UUID                 `json:"instructor_id"`
	SupervisorID          *uuid.UUID                 `json:"supervisor_id"`
	CheckDate             types.Date                 `json:"check_date"`
	CheckTime             string                     `json:"check_time"`
	Status                enums.InventoryCheckStatus `json:"status"`
	TotalItems            int                        `json:"total_items"`
	ItemsGood             int                        `json:"items_good"`
	ItemsDamaged          int                        `json:"items_damaged"`
	ItemsMissing          int                        `json:"items_missing"`
	IsClean               *bool                      `json:"is_clean"`
	IsOrganized           *bool                      `json:"is_organized"`
	InventoryComplete     *bool                      `json:"inventory_complete"`
	CleaningNotes         *string                    `json:"cleaning_notes"`
	Comments              *string                    `json:"comments"`
	SupervisorComments    *string                    `json:"supervisor_comments"`
	StudentConfirmedAt    *time.Time                 `json:"student_confirmed_at"`
	InstructorConfirmedAt *time.Time                 `json:"instructor_confirmed_at"`
	SupervisorConfirmedAt *time.Time                 `json:"supervisor_confirmed_at"`
	Version               int                        `json:"version"`
	CreatedAt             time.Time                  `json:"created_at"`
	UpdatedAt             time.Time                  `json:"updated_at"`
}

// NewCheckDTO maps the model, rendering check_time as a wall clock.
func NewCheckDTO(c models.InventoryCheck, loc *time.Location) CheckDTO {
	if loc == nil {
		loc = time.UTC
	}
	return CheckDTO{
		ID:                    c.ID,
		EnvironmentID:         c.EnvironmentID,
		ScheduleID:            c.ScheduleID,
		StudentID:             c.StudentID,
		InstructorID:          c.InstructorID,
		SupervisorID:          c.SupervisorID,
		CheckDate:             c.CheckDate,
		CheckTime:             c.CheckTime.In(loc).Format(time.TimeOnly),
		Status:                c.Status,
		TotalItems:            c.TotalItems,
		ItemsGood:             c.ItemsGood,
		ItemsDamaged:          c.ItemsDamaged,
		ItemsMissing:          c.ItemsMissing,
		IsClean:               c.IsClean,
		IsOrganized:           c.IsOrganized,
		InventoryComplete:     c.InventoryComplete,
		CleaningNotes:         c.CleaningNotes,
		Comments:              c.Comments,
		SupervisorComments:    c.SupervisorComments,
		StudentConfirmedAt:    c.StudentConfirmedAt,
		InstructorConfirmedAt: c.InstructorConfirmedAt,
		SupervisorConfirmedAt: c.SupervisorConfirmedAt,
		Version:               c.Version,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}

// InitiateResult is returned by both initiate paths.
type InitiateResult struct {
	CheckID uuid.UUID                  `json:"check_id"`
	Status  enums.InventoryCheckStatus `json:"status"`
	Created bool                       `json:"created"`
	Check   CheckDTO                   `json:"check"`
}

// ListResult is one page of checks.
type ListResult struct {
	Items      []CheckDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ScheduleCheck pairs an active schedule with its check for the day.
type ScheduleCheck struct {
	ScheduleID   uuid.UUID  `json:"schedule_id"`
	Program      string     `json:"program"`
	Ficha        string     `json:"ficha"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	InstructorID *uuid.UUID `json:"instructor_id"`
	Check        *CheckDTO  `json:"check"`
}

// ByScheduleView lists a day's schedules of one environment.
type ByScheduleView struct {
	EnvironmentID uuid.UUID       `json:"environment_id"`
	Date          types.Date      `json:"date"`
	Schedules     []ScheduleCheck `json:"schedules"`
}

// ScheduleStats summarizes a day's schedule coverage.
type ScheduleStats struct {
	EnvironmentID    uuid.UUID                          `json:"environment_id"`
	Date             types.Date                         `json:"date"`
	SchedulesTotal   int                                `json:"schedules_total"`
	SchedulesChecked int                                `json:"schedules_checked"`
	SchedulesPending int                                `json:"schedules_pending"`
	ByStatus         map[enums.InventoryCheckStatus]int `json:"by_status"`
}

// ItemsSummary totals counters across checks.
type ItemsSummary struct {
	TotalChecked   int64           `json:"total_checked"`
	GoodItems      int64           `json:"good_items"`
	DamagedItems   int64           `json:"damaged_items"`
	MissingItems   int64           `json:"missing_items"`
	GoodPercentage decimal.Decimal `json:"good_percentage"`
}

// Stats is the verification dashboard.
type Stats struct {
	StatusDistribution map[enums.InventoryCheckStatus]int64 `json:"status_distribution"`
	ItemsSummary       ItemsSummary                         `json:"items_summary"`
	TotalVerifications int64                                `json:"total_verifications"`
}

// GoodPercentage is good/total*100 rounded to two places, zero when total is zero.
func GoodPercentage(good, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(good).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(total), 2)
}

// ReviewDTO is one entry of a check's review trail.
type ReviewDTO struct {
	ID           uuid.UUID            `json:"id"`
	CheckID      uuid.UUID            `json:"check_id"`
	SupervisorID uuid.UUID            `json:"supervisor_id"`
	Decision     enums.ReviewDecision `json:"decision"`
	Comments     *string              `json:"comments"`
	ReviewedAt   time.Time            `json:"reviewed_at"`
}

func newReviewDTO(r models.SupervisorReview) ReviewDTO {
	return ReviewDTO{
		ID:           r.ID,
		CheckID:      r.CheckID,
		SupervisorID: r.SupervisorID,
		Decision:     r.Decision,
		Comments:     r.Comments,
		ReviewedAt:   r.ReviewedAt,
	}
}

func cleanText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
