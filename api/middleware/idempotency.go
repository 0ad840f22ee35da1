package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/digitos-team/masala-software/api/responses"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
	paymentIdempotencyTTL = 7 * 24 * time.Hour
	// how long a claimed key blocks duplicates before the handler finishes
	inflightTTL = 2 * time.Minute
)

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type idempotencyRule struct {
	method string
	path   string // {param} segments match any value
	ttl    time.Duration
}

// Payments keep their replay window longer; a retried settlement must never
// be recorded twice.
var idempotencyRules = []idempotencyRule{
	{http.MethodPost, "/api/v1/orders", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/orders/{orderId}/cancel", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/orders/{orderId}/return", defaultIdempotencyTTL},
	{http.MethodPost, "/api/v1/payments", paymentIdempotencyTTL},
	{http.MethodPost, "/api/v1/payments/bulk", paymentIdempotencyTTL},
}

type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the routes in idempotencyRules. The header is optional. A key is claimed
// before the handler runs so a concurrent duplicate gets 409 instead of a
// second execution. Server errors release the key so the caller can retry.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			ttl, ok := idempotencyTTL(r.Method, r.URL.Path)
			if clientKey == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

			marker, _ := json.Marshal(storedResponse{Pending: true, RequestHash: hash})
			claimed, err := store.SetNX(ctx, key, string(marker), inflightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replay(ctx, store, logg, w, key, hash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			record, _ := json.Marshal(storedResponse{
				RequestHash: hash,
				Status:      capture.statusCode(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(ctx, key, string(record), ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replay(ctx context.Context, store idempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, hash string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// released by a failed first attempt between our claim and read
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is being retried; try again"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}

	switch {
	case stored.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case stored.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set("Idempotent-Replay", "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

func idempotencyTTL(method, path string) (time.Duration, bool) {
	for _, rule := range idempotencyRules {
		if rule.method == method && pathMatches(rule.path, path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

// pathMatches compares segment by segment, ignoring a trailing slash.
func pathMatches(template, path string) bool {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
