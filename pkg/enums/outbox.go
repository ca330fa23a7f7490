package enums

import "fmt"

// OutboxEventType maps to event_type_enum. Every event today belongs to an
// inventory check, so the check id doubles as the Pub/Sub ordering key.
type OutboxEventType string

const (
	EventCheckPendingInstructor OutboxEventType = "inventory_check_pending_instructor"
	EventCheckEscalated         OutboxEventType = "inventory_check_escalated"
	EventCheckReviewed          OutboxEventType = "inventory_check_reviewed"
	EventCheckReminder          OutboxEventType = "check_reminder"
)

func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventCheckPendingInstructor, EventCheckEscalated, EventCheckReviewed, EventCheckReminder:
		return true
	}
	return false
}

// Aggregate returns the aggregate kind the event is emitted for.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	if !e.IsValid() {
		return ""
	}
	return AggregateInventoryCheck
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxAggregateType maps to aggregate_type_enum.
type OutboxAggregateType string

const AggregateInventoryCheck OutboxAggregateType = "inventory_check"

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateInventoryCheck
}

// OutboxDLQErrorReason maps to outbox_dlq_error_reason_enum and records why
// the publisher gave up on a row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonUnknownEvent OutboxDLQErrorReason = "unknown_event"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUnknownEvent:
		return true
	}
	return false
}
