package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	casErr error
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryLockStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	if m.casErr != nil {
		return false, m.casErr
	}
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memoryLockStore) LockKey(name string) string { return "masala:lock:" + name }

func TestRedisLockExcludesSecondHolder(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()

	first, err := NewRedisLock(store, "prod", "cron-worker", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "prod", "cron-worker", 0)
	require.NoError(t, err)

	assert.Equal(t, "masala:lock:prod:cron-worker", first.Key())

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttls[first.Key()])

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, first.Key())

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockLeavesForeignLease(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "", "cron-worker", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// lease expired and another worker took it
	store.values[lock.Key()] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "someone-else", store.values[lock.Key()])
}

func TestRedisLockReleaseReportsStoreErrors(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "dev", "cron-worker", time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx)
	require.NoError(t, err)
	store.casErr = errors.New("connection reset")
	require.Error(t, lock.Release(ctx))
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "dev", "x", 0)
	require.Error(t, err)
	_, err = NewRedisLock(newMemoryLockStore(), "dev", "", 0)
	require.Error(t, err)
}
