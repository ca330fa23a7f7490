package outbox

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
)

const maxDLQErrorLen = 1024

// NewDLQEntry snapshots a row the publisher is giving up on.
func NewDLQEntry(event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, failedAt time.Time) models.OutboxDLQ {
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		AttemptCount:  event.AttemptCount,
		FailedAt:      failedAt.UTC(),
	}
	if cause != nil {
		msg := clip(cause.Error(), maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return entry
}

type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx stores entry once per outbox event. A second insert for the same
// event is ignored.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !entry.ErrorReason.IsValid() {
		return errors.New("dlq entry needs a valid error reason")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil {
		msg := clip(*entry.ErrorMessage, maxDLQErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&entry).Error
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
