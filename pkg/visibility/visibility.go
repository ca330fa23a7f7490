package visibility

import (
	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
)

// CheckScope describes which inventory checks an actor may read. A check is
// visible when All is set, when the actor holds SlotColumn, or when its
// status is one of OpenStatuses.
type CheckScope struct {
	All          bool
	SlotColumn   string
	UserID       uuid.UUID
	OpenStatuses []enums.InventoryCheckStatus
}

// ScopeFor resolves the read scope for role. Students see their own checks,
// instructors their assigned checks plus those pending instructor review,
// supervisors their assigned checks plus those awaiting supervision or
// escalated, and admins everything.
func ScopeFor(role enums.UserRole, userID uuid.UUID) (CheckScope, error) {
	switch role {
	case enums.UserRoleStudent:
		return CheckScope{SlotColumn: "student_id", UserID: userID}, nil
	case enums.UserRoleInstructor:
		return CheckScope{
			SlotColumn: "instructor_id",
			UserID:     userID,
			OpenStatuses: []enums.InventoryCheckStatus{
				enums.CheckStatusStudentPending,
				enums.CheckStatusInstructorReview,
			},
		}, nil
	case enums.UserRoleSupervisor:
		return CheckScope{
			SlotColumn: "supervisor_id",
			UserID:     userID,
			OpenStatuses: []enums.InventoryCheckStatus{
				enums.CheckStatusSupervisorReview,
				enums.CheckStatusIssues,
			},
		}, nil
	case enums.UserRoleAdmin, enums.UserRoleAdminGeneral:
		return CheckScope{All: true}, nil
	default:
		return CheckScope{}, pkgerrors.Newf(pkgerrors.CodeForbidden, "role %q cannot read inventory checks", role)
	}
}

// Allows applies the scope to a loaded check.
func (s CheckScope) Allows(check *models.InventoryCheck) bool {
	if check == nil {
		return false
	}
	if s.All {
		return true
	}
	if slot := s.slot(check); slot != nil && *slot == s.UserID {
		return true
	}
	for _, status := range s.OpenStatuses {
		if check.Status == status {
			return true
		}
	}
	return false
}

// EnsureVisible returns NotFound for checks outside the scope so their
// existence does not leak.
func (s CheckScope) EnsureVisible(check *models.InventoryCheck) error {
	if !s.Allows(check) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory check not found")
	}
	return nil
}

func (s CheckScope) slot(check *models.InventoryCheck) *uuid.UUID {
	switch s.SlotColumn {
	case "student_id":
		return check.StudentID
	case "instructor_id":
		return check.InstructorID
	case "supervisor_id":
		return check.SupervisorID
	}
	return nil
}
