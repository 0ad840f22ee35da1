package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/outbox"
	"github.com/digitos-team/masala-software/pkg/outbox/payloads"
	"github.com/digitos-team/masala-software/pkg/outbox/registry"
)

func TestDrainPublishesWithOrderingKey(t *testing.T) {
	event := orderEvent(0)
	h := newHarness(t, []models.OutboxEvent{event}, nil)

	n, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{event.ID}, h.repo.published)
	require.Len(t, h.pub.sent, 1)
	assert.Equal(t, event.AggregateID.String(), h.pub.sent[0].OrderingKey)
	assert.Equal(t, string(enums.EventOrderCreated), h.pub.sent[0].Attributes["event_type"])
	assert.Equal(t, event.ID.String(), h.pub.sent[0].Attributes["event_id"])
}

func TestDrainContinuesAfterTransientFailure(t *testing.T) {
	first, second := orderEvent(0), orderEvent(0)
	h := newHarness(t, []models.OutboxEvent{first, second}, []error{errors.New("unavailable"), nil})

	n, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{first.ID}, h.repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, h.repo.published)
	assert.Empty(t, h.dlq.entries)
}

func TestDrainDeadLettersAtMaxAttempts(t *testing.T) {
	event := orderEvent(2)
	h := newHarness(t, []models.OutboxEvent{event}, []error{errors.New("timeout")})

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, h.dlq.entries[0].ErrorReason)
	assert.Equal(t, []uuid.UUID{event.ID}, h.repo.terminal)
	assert.Empty(t, h.repo.failed)
}

func TestDrainDeadLettersUnresolvableRows(t *testing.T) {
	event := orderEvent(0)
	event.AggregateType = enums.AggregatePayment
	h := newHarness(t, []models.OutboxEvent{event}, nil)

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, h.dlq.entries[0].ErrorReason)
	assert.Empty(t, h.pub.sent)
}

func TestDrainStopsOnBookkeepingError(t *testing.T) {
	h := newHarness(t, []models.OutboxEvent{orderEvent(0)}, nil)
	h.repo.markErr = errors.New("db gone")

	_, err := h.svc.drain(context.Background())
	require.Error(t, err)
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	h := newHarness(t, nil, nil)
	assert.Equal(t, 3, h.svc.maxAttempts)

	svc, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		DB:         fakeDB{},
		PubSub:     fakeDB{},
		Publisher:  &fakePublisher{},
		Repository: &fakeRepo{},
		DLQ:        &fakeDLQ{},
		Registry:   h.svc.registry,
	})
	require.NoError(t, err)
	assert.Equal(t, defaultBatchSize, svc.batchSize)
	assert.Equal(t, defaultMaxAttempts, svc.maxAttempts)
	assert.Equal(t, defaultPollMs*time.Millisecond, svc.poll)

	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	require.Error(t, err)
}

type harness struct {
	svc  *Service
	repo *fakeRepo
	pub  *fakePublisher
	dlq  *fakeDLQ
}

func newHarness(t *testing.T, events []models.OutboxEvent, results []error) *harness {
	t.Helper()
	eventRegistry, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	require.NoError(t, err)
	h := &harness{
		repo: &fakeRepo{events: events},
		pub:  &fakePublisher{results: results},
		dlq:  &fakeDLQ{},
	}
	h.svc, err = NewService(ServiceParams{
		Config:     config.OutboxConfig{BatchSize: 10, PollIntervalMS: 5, MaxAttempts: 3},
		Logger:     logger.Nop(),
		DB:         fakeDB{},
		PubSub:     fakeDB{},
		Publisher:  h.pub,
		Repository: h.repo,
		DLQ:        h.dlq,
		Registry:   eventRegistry,
	})
	require.NoError(t, err)
	return h
}

// orderEvent builds an order.created row the way outbox.Service.Emit would.
func orderEvent(attempts int) models.OutboxEvent {
	id, orderID := uuid.New(), uuid.New()
	data, _ := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:     orderID,
		OrderNumber: "ORD-20261018-0001",
		PlacedBy:    uuid.New(),
		Currency:    enums.CurrencyINR,
	})
	payload, _ := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id,
		OccurredAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Data:       data,
	})
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
	markErr   error
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQ) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakePublisher struct {
	results []error
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) (string, error) {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return "msg-id", nil
	}
	err := f.results[0]
	f.results = f.results[1:]
	return "msg-id", err
}
