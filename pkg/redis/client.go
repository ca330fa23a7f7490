package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
)

// ErrNil is returned by Get when the key does not exist.
var ErrNil = redis.Nil

var errNotConnected = errors.New("redis client not initialized")

// releaseIfOwner deletes KEYS[1] only while it still holds ARGV[1].
const releaseIfOwner = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type commands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// Client is the small key/value surface shared by the API, the workers and
// cron: request replay, processed-event marks, leases and reminder markers.
type Client struct {
	cmd    commands
	closer func() error
	keys   Keyspace
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is what the consumer-side dedupe needs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// New connects using cfg and fails fast when the server does not answer.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return &Client{cmd: conn, closer: conn.Close, keys: DefaultKeyspace}, nil
}

// optionsFromConfig prefers URL. Pool and timeout settings from cfg fill in
// whatever the URL leaves unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	case cfg.Address == "":
		return nil, errors.New("redis url or address is required")
	}

	fill := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillDur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DB, cfg.DB)
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDur(&opts.DialTimeout, cfg.DialTimeout)
	fillDur(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDur(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Ping(ctx).Err()
}

// Get returns ErrNil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmd == nil {
		return "", errNotConnected
	}
	return c.cmd.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// AcquireLock takes the lease name for ttl on behalf of owner. It reports
// false while someone else holds it.
func (c *Client) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, c.keys.Lock(name), owner, ttl)
}

// ReleaseLock drops the lease only if owner still holds it. The check and
// delete run as one script so an expired lease taken over by another owner
// is never removed.
func (c *Client) ReleaseLock(ctx context.Context, name, owner string) error {
	if c.cmd == nil {
		return errNotConnected
	}
	err := c.cmd.Eval(ctx, releaseIfOwner, []string{c.keys.Lock(name)}, owner).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// MarkOnce reports true the first time scope/id is seen within ttl.
func (c *Client) MarkOnce(ctx context.Context, scope, id string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, c.keys.Marker(scope, id), "1", ttl)
}

func (c *Client) IdempotencyKey(scope, id string) string { return c.keys.Idempotency(scope, id) }

func (c *Client) RequestKey(userID, key string) string { return c.keys.Request(userID, key) }

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
