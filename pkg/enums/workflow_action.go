package enums

// WorkflowAction names the verbs of the inventory check state machine.
type WorkflowAction string

const (
	ActionInitiate   WorkflowAction = "initiate"
	ActionSubmit     WorkflowAction = "submit"
	ActionConfirm    WorkflowAction = "confirm"
	ActionApprove    WorkflowAction = "approve"
	ActionAssignRole WorkflowAction = "assign_role"
)

func (a WorkflowAction) String() string {
	return string(a)
}
