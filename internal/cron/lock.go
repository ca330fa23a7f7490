package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/pkg/instance"
)

const defaultLockTTL = 55 * time.Minute

// Lock coordinates exclusive cron runs across replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type leaseStore interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

// RedisLock implements Lock on top of the redis lease helpers.
type RedisLock struct {
	client leaseStore
	name   string
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client leaseStore, name string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, name: name, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL. The owner token
// names this process so a stuck lease can be traced to its holder.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := instance.GetID() + "/" + uuid.NewString()
	ok, err := l.client.AcquireLock(ctx, l.name, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if this instance still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if err := l.client.ReleaseLock(ctx, l.name, l.owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.owner = ""
	return nil
}
