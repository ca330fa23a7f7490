package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

// OutboxEvent is written in the same transaction as the check change it
// announces. Payload holds the JSON envelope published to Pub/Sub verbatim.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:event_type_enum;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }
