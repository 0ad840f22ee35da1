package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	keys map[string]time.Duration
}

func newMemoryStore() *memoryStore { return &memoryStore{keys: map[string]time.Duration{}} }

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "masala:idempotency:" + scope + ":" + id
}

func TestClaimOnlyOnce(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	first, err := manager.Claim(context.Background(), "inbox", eventID)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := manager.Claim(context.Background(), "inbox", eventID)
	require.NoError(t, err)
	assert.False(t, second)

	other, err := manager.Claim(context.Background(), "audit", eventID)
	require.NoError(t, err)
	assert.True(t, other, "claims are per consumer")

	key := "masala:idempotency:evt:processed:inbox:" + eventID.String()
	assert.Equal(t, time.Hour, store.keys[key])
}

func TestReleaseAllowsRetry(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	_, err = manager.Claim(context.Background(), "inbox", eventID)
	require.NoError(t, err)
	require.NoError(t, manager.Release(context.Background(), "inbox", eventID))

	again, err := manager.Claim(context.Background(), "inbox", eventID)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newMemoryStore(), -time.Second)
	assert.Error(t, err)

	manager, err := NewManager(newMemoryStore(), 0)
	require.NoError(t, err)
	_, err = manager.Claim(context.Background(), "", uuid.New())
	assert.Error(t, err)
	_, err = manager.Claim(context.Background(), "inbox", uuid.Nil)
	assert.Error(t, err)
}
