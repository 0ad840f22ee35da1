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

	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxIdleBackoff        = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pinger interface {
	Ping(context.Context) error
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

// publisher sends one message. Messages carry the aggregate id as ordering
// key so consumers see an order's events in commit order.
type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

type ServiceParams struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         dbClient
	PubSub     pinger
	Publisher  publisher
	Repository outboxRepository
	DLQ        dlqRepository
	Registry   registryResolver
}

// Service drains outbox rows to Pub/Sub. Each batch runs in one transaction
// so a crash mid-batch leaves the rows unpublished for the next pass.
type Service struct {
	logg        *logger.Logger
	db          dbClient
	pubsub      pinger
	publisher   publisher
	repo        outboxRepository
	dlq         dlqRepository
	registry    registryResolver
	batchSize   int
	maxAttempts int
	poll        time.Duration
	jitter      func(time.Duration) time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Publisher == nil:
		return nil, errors.New("publisher is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	s := &Service{
		logg:        params.Logger,
		db:          params.DB,
		pubsub:      params.PubSub,
		publisher:   params.Publisher,
		repo:        params.Repository,
		dlq:         params.DLQ,
		registry:    params.Registry,
		batchSize:   params.Config.BatchSize,
		maxAttempts: params.Config.MaxAttempts,
		poll:        time.Duration(params.Config.PollIntervalMS) * time.Millisecond,
		jitter:      withJitter,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.poll <= 0 {
		s.poll = defaultPollMs * time.Millisecond
	}
	return s, nil
}

// Run polls until ctx is cancelled. Full batches are followed immediately by
// the next one; empty or failed passes back off.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}

	wait := s.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.drain(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case n >= s.batchSize:
			wait = s.poll
			continue
		default:
			wait = s.poll
		}
		if err := sleep(ctx, s.jitter(wait)); err != nil {
			return err
		}
	}
}

// drain publishes one batch and reports how many rows it handled.
func (s *Service) drain(ctx context.Context) (int, error) {
	handled := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox: %w", err)
		}
		for _, event := range events {
			if err := s.dispatch(ctx, tx, event); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

// dispatch publishes a single row and records the outcome on it. Only
// bookkeeping failures are returned; publish failures are recorded.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     string(event.EventType),
		"aggregate_id":   event.AggregateID.String(),
		"aggregate_type": string(event.AggregateType),
		"attempt":        event.AttemptCount + 1,
	})

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	}

	pubErr := s.send(ctx, event, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(s.logg.WithField(logCtx, "topic", resolved.Descriptor.Topic), "outbox event published")
		return nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		return s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr)
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		return s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", s.maxAttempts, pubErr))
	}

	s.logg.Warn(s.logg.WithField(logCtx, "error", pubErr.Error()), "outbox publish failed, will retry")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failed %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID.String(),
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"occurred_at":    resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	_, err := s.publisher.Publish(publishCtx, msg)
	return err
}

// deadLetter copies the row to the DLQ and pins it so it is never fetched again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error_reason": string(reason),
		"error":        cause.Error(),
	}), "outbox event moved to dlq")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func withJitter(d time.Duration) time.Duration {
	return d + time.Duration(rand.Int63n(int64(jitterWindow)))
}

// topicPublisher adapts a Pub/Sub publisher. A failed ordered publish pauses
// its key, so the key is resumed before the error is returned for retry.
type topicPublisher struct {
	pub *gcppubsub.Publisher
}

func newTopicPublisher(pub *gcppubsub.Publisher) (*topicPublisher, error) {
	if pub == nil {
		return nil, errors.New("orders topic publisher not configured")
	}
	pub.EnableMessageOrdering = true
	return &topicPublisher{pub: pub}, nil
}

func (p *topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	id, err := p.pub.Publish(ctx, msg).Get(ctx)
	if err != nil && msg.OrderingKey != "" {
		p.pub.ResumePublish(msg.OrderingKey)
	}
	return id, err
}

func (p *topicPublisher) Stop() {
	p.pub.Stop()
}
