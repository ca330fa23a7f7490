package enums

import "fmt"

// InventoryCheckStatus maps to the inventory_check_status enum in Postgres.
type InventoryCheckStatus string

const (
	CheckStatusStudentPending   InventoryCheckStatus = "student_pending"
	CheckStatusInstructorReview InventoryCheckStatus = "instructor_review"
	CheckStatusSupervisorReview InventoryCheckStatus = "supervisor_review"
	CheckStatusIssues           InventoryCheckStatus = "issues"
	CheckStatusComplete         InventoryCheckStatus = "complete"
	CheckStatusRejected         InventoryCheckStatus = "rejected"
)

var validInventoryCheckStatuses = []InventoryCheckStatus{
	CheckStatusStudentPending,
	CheckStatusInstructorReview,
	CheckStatusSupervisorReview,
	CheckStatusIssues,
	CheckStatusComplete,
	CheckStatusRejected,
}

// AllInventoryCheckStatuses returns the statuses in lifecycle order.
func AllInventoryCheckStatuses() []InventoryCheckStatus {
	out := make([]InventoryCheckStatus, len(validInventoryCheckStatuses))
	copy(out, validInventoryCheckStatuses)
	return out
}

func (s InventoryCheckStatus) String() string {
	return string(s)
}

func (s InventoryCheckStatus) IsValid() bool {
	for _, candidate := range validInventoryCheckStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsFinal reports the statuses no workflow action moves out of.
// issues is still open to supervisor approval.
func (s InventoryCheckStatus) IsFinal() bool {
	return s == CheckStatusComplete || s == CheckStatusRejected
}

func ParseInventoryCheckStatus(value string) (InventoryCheckStatus, error) {
	for _, candidate := range validInventoryCheckStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory check status %q", value)
}
