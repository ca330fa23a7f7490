package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	"github.com/gestion-ambientes/ambientes-backend/pkg/db/models"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/metrics"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type outcomeRecorder interface {
	Observe(eventType, outcome string)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	DLQRepository    dlqRepository
	Metrics          outcomeRecorder
	PublisherFactory publisherFactory
}

// Service drains the outbox table onto the check events topic.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	metrics          outcomeRecorder
	publisherFactory publisherFactory
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
	now              func() time.Time
}

// batchOutcome tallies what one pass over the outbox did.
type batchOutcome struct {
	fetched      int
	published    int
	retried      int
	deadLettered int
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		cache := map[string]publisher{}
		factory = func(topic string) publisher {
			if pub, ok := cache[topic]; ok {
				return pub
			}
			pub := newGCPPublisher(params.PubSub.Publisher(topic))
			if pub != nil {
				cache[topic] = pub
			}
			return pub
		}
	}
	rec := params.Metrics
	if rec == nil {
		rec = metrics.NewOutboxMetrics(nil)
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		metrics:          rec,
		publisherFactory: factory,
		batchSize:        positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
		now:              time.Now,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"pubsub", s.pubsub.Ping},
	} {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

// Run polls until ctx is canceled. Empty polls sleep for the poll interval;
// failing polls back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		outcome, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = s.pollInterval

		if outcome.fetched > 0 {
			s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
				"fetched":       outcome.fetched,
				"published":     outcome.published,
				"retried":       outcome.retried,
				"dead_lettered": outcome.deadLettered,
			}), "outbox batch drained")
			continue
		}
		if err := s.sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

// processBatch locks a batch of unpublished rows and publishes them inside
// one transaction so row state commits together with the locks.
func (s *Service) processBatch(ctx context.Context) (batchOutcome, error) {
	var outcome batchOutcome
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		outcome = batchOutcome{}
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		outcome.fetched = len(events)
		for _, event := range events {
			if err := s.handleEvent(ctx, tx, event, &outcome); err != nil {
				return err
			}
		}
		return nil
	})
	return outcome, err
}

func (s *Service) handleEvent(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, outcome *batchOutcome) error {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		outcome.deadLettered++
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, s.eventFields(event, nil))
	}

	fields := s.eventFields(event, resolved)
	pubErr := s.publish(ctx, event, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		outcome.published++
		s.metrics.Observe(string(event.EventType), metrics.OutboxPublished)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		outcome.deadLettered++
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr, fields)
	}

	nextAttempt := event.AttemptCount + 1
	fields["attempt_count"] = nextAttempt
	if nextAttempt >= s.maxAttempts {
		outcome.deadLettered++
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("max publish attempts reached: %w", pubErr), fields)
	}

	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", pubErr.Error())
	s.logg.Warn(logCtx, "outbox publish failed")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	outcome.retried++
	s.metrics.Observe(string(event.EventType), metrics.OutboxRetried)
	return nil
}

// deadLetter copies the row into the DLQ and marks it terminal so the
// publisher never fetches it again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error())
	s.logg.Warn(logCtx, "outbox event will not be retried")

	entry := outbox.NewDLQEntry(event, reason, cause, s.now())
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.Observe(string(event.EventType), metrics.OutboxDeadLettered)
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event, resolved.Envelope),
	}
	// Ordering by check keeps a check's notifications in transition order.
	if event.AggregateType == enums.AggregateInventoryCheck {
		msg.OrderingKey = event.AggregateID.String()
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

func messageAttributes(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]string {
	return map[string]string{
		"event_id":       envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (s *Service) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		if resolved.Envelope.EventID != "" {
			fields["event_id"] = resolved.Envelope.EventID
			fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
		}
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < max {
		return next
	}
	return max
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	p.EnableMessageOrdering = true
	return &gcpPublisher{Publisher: p}
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	res := p.Publisher.Publish(ctx, msg)
	if res == nil {
		return nil
	}
	return gcpPublishResult{PublishResult: res, pub: p.Publisher, key: msg.OrderingKey}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
	pub *gcppubsub.Publisher
	key string
}

func (r gcpPublishResult) Get(ctx context.Context) (string, error) {
	id, err := r.PublishResult.Get(ctx)
	if err != nil && r.key != "" {
		// a failed ordered publish pauses the key until resumed
		r.pub.ResumePublish(r.key)
	}
	return id, err
}
