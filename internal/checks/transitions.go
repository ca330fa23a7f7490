package checks

import (
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
)

// noState is the source state of an initiate transition.
const noState enums.InventoryCheckStatus = ""

type transitionKey struct {
	from   enums.InventoryCheckStatus
	role   enums.UserRole
	action enums.WorkflowAction
}

// TransitionInput carries the values a transition's outcome depends on.
type TransitionInput struct {
	InventoryComplete *bool
	ItemsDamaged      int
	ItemsMissing      int
	Decision          enums.ReviewDecision
	Target            enums.InventoryCheckStatus
}

type outcome func(check *models.InventoryCheck, in TransitionInput) (enums.InventoryCheckStatus, error)

var transitions = map[transitionKey]outcome{}

func allow(action enums.WorkflowAction, froms []enums.InventoryCheckStatus, roles []enums.UserRole, fn outcome) {
	for _, from := range froms {
		for _, role := range roles {
			transitions[transitionKey{from: from, role: role, action: action}] = fn
		}
	}
}

func fixed(status enums.InventoryCheckStatus) outcome {
	return func(*models.InventoryCheck, TransitionInput) (enums.InventoryCheckStatus, error) {
		return status, nil
	}
}

func init() {
	none := []enums.InventoryCheckStatus{noState}
	allow(enums.ActionInitiate, none, []enums.UserRole{enums.UserRoleStudent}, fixed(enums.CheckStatusStudentPending))
	allow(enums.ActionInitiate, none, []enums.UserRole{enums.UserRoleInstructor}, fixed(enums.CheckStatusInstructorReview))
	allow(enums.ActionInitiate, none, []enums.UserRole{enums.UserRoleSupervisor}, fixed(enums.CheckStatusSupervisorReview))

	allow(enums.ActionSubmit,
		[]enums.InventoryCheckStatus{enums.CheckStatusStudentPending},
		[]enums.UserRole{enums.UserRoleStudent},
		submitOutcome)

	allow(enums.ActionConfirm,
		[]enums.InventoryCheckStatus{enums.CheckStatusStudentPending, enums.CheckStatusInstructorReview, enums.CheckStatusIssues},
		[]enums.UserRole{enums.UserRoleInstructor, enums.UserRoleSupervisor},
		confirmOutcome)

	allow(enums.ActionApprove,
		[]enums.InventoryCheckStatus{enums.CheckStatusSupervisorReview, enums.CheckStatusIssues},
		[]enums.UserRole{enums.UserRoleSupervisor},
		approveOutcome)

	allow(enums.ActionAssignRole,
		[]enums.InventoryCheckStatus{enums.CheckStatusStudentPending, enums.CheckStatusInstructorReview, enums.CheckStatusSupervisorReview},
		[]enums.UserRole{enums.UserRoleSupervisor, enums.UserRoleAdmin, enums.UserRoleAdminGeneral},
		assignOutcome)
}

// Resolve looks up (from, role, action) and computes the next state. A role
// with no row for the action is Forbidden; a role that may perform the
// action elsewhere but not from this state gets StateConflict.
func Resolve(check *models.InventoryCheck, role enums.UserRole, action enums.WorkflowAction, in TransitionInput) (enums.InventoryCheckStatus, error) {
	from := noState
	if check != nil {
		from = check.Status
	}
	fn, ok := transitions[transitionKey{from: from, role: role, action: action}]
	if ok {
		return fn(check, in)
	}
	if !roleMayPerform(role, action) {
		return "", pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s cannot %s inventory checks", role, action)
	}
	return "", pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s a check in status %s", action, from).
		WithDetails(map[string]any{"status": from, "action": action})
}

// Allowed reports whether the table has a row for the triple.
func Allowed(from enums.InventoryCheckStatus, role enums.UserRole, action enums.WorkflowAction) bool {
	_, ok := transitions[transitionKey{from: from, role: role, action: action}]
	return ok
}

func roleMayPerform(role enums.UserRole, action enums.WorkflowAction) bool {
	for key := range transitions {
		if key.role == role && key.action == action {
			return true
		}
	}
	return false
}

func hasDefects(damaged, missing int) bool {
	return damaged+missing > 0
}

func submitOutcome(check *models.InventoryCheck, _ TransitionInput) (enums.InventoryCheckStatus, error) {
	if hasDefects(check.ItemsDamaged, check.ItemsMissing) {
		return enums.CheckStatusIssues, nil
	}
	return enums.CheckStatusInstructorReview, nil
}

// confirmOutcome keeps issues sticky and escalates incomplete or defective
// inventories.
func confirmOutcome(check *models.InventoryCheck, in TransitionInput) (enums.InventoryCheckStatus, error) {
	switch {
	case check.Status == enums.CheckStatusIssues:
		return enums.CheckStatusIssues, nil
	case in.InventoryComplete == nil || !*in.InventoryComplete:
		return enums.CheckStatusIssues, nil
	case hasDefects(check.ItemsDamaged, check.ItemsMissing):
		return enums.CheckStatusIssues, nil
	}
	return enums.CheckStatusSupervisorReview, nil
}

func approveOutcome(_ *models.InventoryCheck, in TransitionInput) (enums.InventoryCheckStatus, error) {
	switch in.Decision {
	case enums.ReviewDecisionRejected:
		return enums.CheckStatusRejected, nil
	case enums.ReviewDecisionApproved:
		complete := in.InventoryComplete != nil && *in.InventoryComplete
		if complete && !hasDefects(in.ItemsDamaged, in.ItemsMissing) {
			return enums.CheckStatusComplete, nil
		}
		return enums.CheckStatusIssues, nil
	}
	return "", pkgerrors.Newf(pkgerrors.CodeValidation, "decision must be approved or rejected, got %q", in.Decision)
}

func assignOutcome(_ *models.InventoryCheck, in TransitionInput) (enums.InventoryCheckStatus, error) {
	switch in.Target {
	case enums.CheckStatusInstructorReview, enums.CheckStatusSupervisorReview:
		return in.Target, nil
	}
	return "", pkgerrors.Newf(pkgerrors.CodeValidation, "target must be instructor_review or supervisor_review, got %q", in.Target)
}
