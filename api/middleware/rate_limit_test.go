package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgredis "github.com/digitos-team/masala-software/pkg/redis"
)

type countingLimiter struct {
	counts map[string]int64
	err    error
}

func (c *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, window time.Duration) (pkgredis.Window, error) {
	if c.err != nil {
		return pkgredis.Window{}, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[scope]++
	n := c.counts[scope]
	return pkgredis.Window{Allowed: n <= limit, Count: n, ResetIn: window - 500*time.Millisecond}, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestWriteRateLimitBlocksAfterLimit(t *testing.T) {
	limiter := &countingLimiter{}
	cfg := config.RateLimitConfig{WriteWindow: time.Minute, WriteLimit: 2}
	handler := WriteRateLimit(cfg, limiter, nil)(okHandler())
	actor := orders.Actor{UserID: uuid.New(), Role: enums.RoleDistributor}

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
		req = req.WithContext(WithActor(req.Context(), actor))
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if got := last.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}
	if _, ok := limiter.counts["write:"+actor.UserID.String()]; !ok {
		t.Fatalf("expected limiter keyed by user id, got %v", limiter.counts)
	}
}

func TestWriteRateLimitIgnoresReads(t *testing.T) {
	limiter := &countingLimiter{}
	cfg := config.RateLimitConfig{WriteWindow: time.Minute, WriteLimit: 1}
	handler := WriteRateLimit(cfg, limiter, nil)(okHandler())

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("reads should pass, got %d", rec.Code)
		}
	}
	if len(limiter.counts) != 0 {
		t.Fatalf("reads should not be counted")
	}
}

func TestWriteRateLimitFallsBackToIP(t *testing.T) {
	limiter := &countingLimiter{}
	cfg := config.RateLimitConfig{WriteWindow: time.Minute, WriteLimit: 5}
	handler := WriteRateLimit(cfg, limiter, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if limiter.counts["write:ip:203.0.113.9"] != 1 {
		t.Fatalf("expected ip key, got %v", limiter.counts)
	}
}

func TestWriteRateLimitStoreFailure(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	cfg := config.RateLimitConfig{WriteWindow: time.Minute, WriteLimit: 5}
	rec := httptest.NewRecorder()
	WriteRateLimit(cfg, limiter, nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/orders/x", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
