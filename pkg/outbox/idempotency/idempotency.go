// Package idempotency keeps Pub/Sub consumers from handling the same outbox
// event twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/gestion-ambientes/ambientes-backend/pkg/redis"
)

const (
	stateProcessing = "processing"
	stateDone       = "done"

	// defaultLease bounds how long a crashed handler can block redelivery.
	defaultLease = 5 * time.Minute
)

// ErrInFlight means another delivery of the same event is being handled
// right now. Callers should nack and let Pub/Sub redeliver later.
var ErrInFlight = errors.New("event is being processed by another delivery")

// Manager marks events per consumer in two steps. A short lease is taken
// before the handler runs and is replaced by a long lived done mark once the
// handler succeeds. Keys look like amb:idempotency:evt:<consumer>:<event_id>.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	lease time.Duration
}

// NewManager keeps done marks for ttl. A zero ttl keeps them forever.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	lease := defaultLease
	if ttl > 0 && ttl < lease {
		lease = ttl
	}
	return &Manager{store: store, ttl: ttl, lease: lease}, nil
}

// Guard runs fn at most once per consumer and event. It reports true when
// the event was already handled. A failed fn releases the lease so the next
// delivery retries.
func (m *Manager) Guard(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}

	claimed, err := m.store.SetNX(ctx, key, stateProcessing, m.lease)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	if !claimed {
		return m.inspect(ctx, key)
	}

	if err := fn(ctx); err != nil {
		return false, multierr.Append(err, m.store.Del(context.WithoutCancel(ctx), key))
	}
	if err := m.store.Set(context.WithoutCancel(ctx), key, stateDone, m.ttl); err != nil {
		return false, fmt.Errorf("mark %s done: %w", key, err)
	}
	return false, nil
}

func (m *Manager) inspect(ctx context.Context, key string) (bool, error) {
	state, err := m.store.Get(ctx, key)
	switch {
	case err == nil && state == stateDone:
		return true, nil
	case err == nil || errors.Is(err, redis.ErrNil):
		// still leased, or the lease lapsed between SETNX and GET
		return false, ErrInFlight
	default:
		return false, fmt.Errorf("read %s: %w", key, err)
	}
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
