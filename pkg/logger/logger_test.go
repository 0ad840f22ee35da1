package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	return entry
}

func TestErrorCarriesScopedFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.DebugLevel.String(), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithActor(ctx, "user-1", "distributor")
	ctx = log.WithOrderID(ctx, "order-9")
	log.Error(ctx, "boom", errors.New("stock exhausted"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "distributor", entry["actor_role"])
	assert.Equal(t, "order-9", entry["order_id"])
	assert.Equal(t, "stock exhausted", entry["error"])
	assert.NotEmpty(t, entry["stack"])
}

func TestScopedFieldsDoNotLeakToParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	parent := log.WithField(context.Background(), "job", "outbox")
	_ = log.WithFields(parent, map[string]any{"attempt": 2})
	log.Info(parent, "tick")

	entry := decodeLine(t, buf)
	assert.Equal(t, "outbox", entry["job"])
	assert.NotContains(t, entry, "attempt")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf}).Warn(context.Background(), "quiet")
	assert.NotContains(t, decodeLine(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "test", Output: buf, WarnStack: true}).Warn(context.Background(), "loud")
	assert.Contains(t, decodeLine(t, buf), "stack")
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Format: "Console", Output: buf}).Info(context.Background(), "hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}

func TestDebugFilteredAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf}).Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestLevelNames(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Level: "debug", Output: buf}).Debug(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	New(Options{ServiceName: "test", Level: "disabled", Output: buf}).Warn(context.Background(), "muted")
	assert.Zero(t, buf.Len())
}
