package checks

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/auth"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox/payloads"
)

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
}

func checkEvent(kind enums.OutboxEventType, checkID uuid.UUID, actor auth.Actor, at time.Time, data any) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     kind,
		AggregateType: enums.AggregateInventoryCheck,
		AggregateID:   checkID,
		Actor:         actorRef(actor),
		Data:          data,
		OccurredAt:    at,
	}
}

// pendingInstructorEvent addresses instructorID, usually the schedule's
// instructor since the slot is still empty at this point.
func pendingInstructorEvent(check *models.InventoryCheck, instructorID *uuid.UUID, actor auth.Actor, at time.Time) outbox.DomainEvent {
	return checkEvent(enums.EventCheckPendingInstructor, check.ID, actor, at, payloads.CheckPendingInstructorEvent{
		CheckID:       check.ID,
		EnvironmentID: check.EnvironmentID,
		ScheduleID:    check.ScheduleID,
		StudentID:     check.StudentID,
		InstructorID:  instructorID,
		CheckDate:     check.CheckDate,
		Status:        check.Status,
	})
}

func escalatedEvent(check *models.InventoryCheck, actor auth.Actor, at time.Time) outbox.DomainEvent {
	return checkEvent(enums.EventCheckEscalated, check.ID, actor, at, payloads.CheckEscalatedEvent{
		CheckID:       check.ID,
		EnvironmentID: check.EnvironmentID,
		CheckDate:     check.CheckDate,
		Status:        check.Status,
		ItemsDamaged:  check.ItemsDamaged,
		ItemsMissing:  check.ItemsMissing,
		EscalatedBy:   actor.Role,
	})
}

func reviewedEvent(check *models.InventoryCheck, review *models.SupervisorReview, actor auth.Actor, at time.Time) outbox.DomainEvent {
	data := payloads.CheckReviewedEvent{
		CheckID:       check.ID,
		EnvironmentID: check.EnvironmentID,
		SupervisorID:  review.SupervisorID,
		StudentID:     check.StudentID,
		InstructorID:  check.InstructorID,
		Decision:      review.Decision,
		Status:        check.Status,
	}
	if review.Comments != nil {
		data.Comments = *review.Comments
	}
	return checkEvent(enums.EventCheckReviewed, check.ID, actor, at, data)
}

// ReminderEvent is emitted by the stale-check sweep. It carries no actor.
func ReminderEvent(check models.InventoryCheck, recipients []uuid.UUID, pending time.Duration, at time.Time) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventCheckReminder,
		AggregateType: enums.AggregateInventoryCheck,
		AggregateID:   check.ID,
		Data: payloads.CheckReminderEvent{
			CheckID:       check.ID,
			EnvironmentID: check.EnvironmentID,
			CheckDate:     check.CheckDate,
			Status:        check.Status,
			RecipientIDs:  recipients,
			PendingHours:  int(pending.Hours()),
		},
		OccurredAt: at,
	}
}
