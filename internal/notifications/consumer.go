package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox/idempotency"
)

const checkNotificationConsumer = "check-notifications"

type eventDispatcher interface {
	Dispatch(ctx context.Context, env outbox.PayloadEnvelope, payload any) (int, error)
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

type processedGuard interface {
	Guard(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

var _ processedGuard = (*idempotency.Manager)(nil)

// Consumer reads inventory check events from Pub/Sub and hands them to the dispatcher.
type Consumer struct {
	dispatcher   eventDispatcher
	decoders     payloadDecoder
	subscription *pubsub.Subscriber
	idempotency  processedGuard
	logg         *logger.Logger
}

// NewConsumer builds a check notification consumer.
func NewConsumer(dispatcher eventDispatcher, decoders payloadDecoder, subscription *pubsub.Subscriber, guard processedGuard, logg *logger.Logger) (*Consumer, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if decoders == nil {
		return nil, fmt.Errorf("payload decoders required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		dispatcher:   dispatcher,
		decoders:     decoders,
		subscription: subscription,
		idempotency:  guard,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Handle(ctx, msg.ID, msg.Attributes, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Handle processes one delivery and reports whether it should be acked.
// Malformed messages and non-retryable dispatch errors are acked so they do
// not loop forever. Other dispatch failures are nacked for redelivery.
func (c *Consumer) Handle(ctx context.Context, messageID string, attrs map[string]string, data []byte) bool {
	eventType := enums.OutboxEventType(attrs["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": string(eventType),
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event")
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	payload, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return true
	}

	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())
	skipped, err := c.idempotency.Guard(ctx, checkNotificationConsumer, eventID, func(ctx context.Context) error {
		_, err := c.dispatcher.Dispatch(ctx, envelope, payload)
		return err
	})
	if err != nil {
		if !pkgerrors.Retryable(err) {
			c.logg.Error(logCtx, "notification dropped", err)
			return true
		}
		c.logg.Error(logCtx, "notification handling failed", err)
		return false
	}
	if skipped {
		c.logg.Info(logCtx, "event already processed")
	}
	return true
}
