package payloads

import (
	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

// CheckPendingInstructorEvent asks the responsible instructor to review a check.
type CheckPendingInstructorEvent struct {
	CheckID       uuid.UUID                  `json:"check_id"`
	EnvironmentID uuid.UUID                  `json:"environment_id"`
	ScheduleID    *uuid.UUID                 `json:"schedule_id,omitempty"`
	StudentID     *uuid.UUID                 `json:"student_id,omitempty"`
	InstructorID  *uuid.UUID                 `json:"instructor_id,omitempty"`
	CheckDate     types.Date                 `json:"check_date"`
	Status        enums.InventoryCheckStatus `json:"status"`
}

// CheckEscalatedEvent tells supervisors a check needs their review. Reason is
// the status that triggered it: supervisor_review or issues.
type CheckEscalatedEvent struct {
	CheckID       uuid.UUID                  `json:"check_id"`
	EnvironmentID uuid.UUID                  `json:"environment_id"`
	CheckDate     types.Date                 `json:"check_date"`
	Status        enums.InventoryCheckStatus `json:"status"`
	ItemsDamaged  int                        `json:"items_damaged"`
	ItemsMissing  int                        `json:"items_missing"`
	EscalatedBy   enums.UserRole             `json:"escalated_by"`
}

// CheckReviewedEvent reports a supervisor decision to the student and instructor.
type CheckReviewedEvent struct {
	CheckID       uuid.UUID                  `json:"check_id"`
	EnvironmentID uuid.UUID                  `json:"environment_id"`
	SupervisorID  uuid.UUID                  `json:"supervisor_id"`
	StudentID     *uuid.UUID                 `json:"student_id,omitempty"`
	InstructorID  *uuid.UUID                 `json:"instructor_id,omitempty"`
	Decision      enums.ReviewDecision       `json:"decision"`
	Status        enums.InventoryCheckStatus `json:"status"`
	Comments      string                     `json:"comments,omitempty"`
}

// CheckReminderEvent nudges whoever owns the next step of a stale check.
type CheckReminderEvent struct {
	CheckID       uuid.UUID                  `json:"check_id"`
	EnvironmentID uuid.UUID                  `json:"environment_id"`
	CheckDate     types.Date                 `json:"check_date"`
	Status        enums.InventoryCheckStatus `json:"status"`
	RecipientIDs  []uuid.UUID                `json:"recipient_ids"`
	PendingHours  int                        `json:"pending_hours"`
}
