package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

type eventWriter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

type Service struct {
	repo eventWriter
	logg *logger.Logger
	seq  func() uuid.UUID
}

func NewService(repo eventWriter, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, seq: uuid.New}
}

// Emit stores the event in the caller's transaction.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !event.EventType.IsValid() {
		return fmt.Errorf("unknown event type %q", event.EventType)
	}
	if event.AggregateType == "" {
		event.AggregateType = event.EventType.Aggregate()
	}
	if event.AggregateType != event.EventType.Aggregate() {
		return fmt.Errorf("event %s cannot target aggregate %q", event.EventType, event.AggregateType)
	}
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.Version == 0 {
		event.Version = 1
	}
	envelope := PayloadEnvelope{
		Version:    event.Version,
		EventID:    s.seq().String(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       payload,
	}
	payloadJSON, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := models.OutboxEvent{
		ID:            s.seq(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       json.RawMessage(payloadJSON),
		CreatedAt:     event.OccurredAt,
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":       envelope.EventID,
			"event_type":     event.EventType,
			"aggregate_id":   event.AggregateID.String(),
			"aggregate_type": event.AggregateType,
		})
		s.logg.Info(logCtx, "outbox event queued")
	}
	return nil
}

// EmitBestEffort stores the event inside a savepoint. A failed insert rolls
// back to the savepoint and is logged, leaving the surrounding transaction
// usable. It reports whether the event was stored.
func (s *Service) EmitBestEffort(ctx context.Context, tx *gorm.DB, event DomainEvent) bool {
	if tx == nil {
		return false
	}
	name := "outbox_" + strings.ReplaceAll(s.seq().String(), "-", "")
	if err := tx.SavePoint(name).Error; err != nil {
		s.warn(ctx, event, "outbox savepoint failed", err)
		return false
	}
	if err := s.Emit(ctx, tx, event); err != nil {
		if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		s.warn(ctx, event, "outbox event dropped", err)
		return false
	}
	return true
}

func (s *Service) warn(ctx context.Context, event DomainEvent, msg string, err error) {
	if s.logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID.String(),
		"error":        err.Error(),
	})
	s.logg.Warn(logCtx, msg)
}
