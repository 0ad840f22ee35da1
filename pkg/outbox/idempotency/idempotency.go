// Package idempotency remembers which outbox events a consumer has already
// handled, so redelivered Pub/Sub messages are acknowledged without side effects.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const processedScope = "evt:processed"

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager marks events processed per consumer with SETNX and a TTL.
type Manager struct {
	store store
	ttl   time.Duration
}

func NewManager(s store, ttl time.Duration) (*Manager, error) {
	if s == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: s, ttl: ttl}, nil
}

// Claim marks the event as processed for consumer. It reports false when
// another delivery already claimed it.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, "1", m.ttl)
}

// Release forgets a claim so a failed event can be redelivered and retried.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(processedScope+":"+consumer, eventID.String()), nil
}
