package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/digitos-team/masala-software/api/responses"
	"github.com/digitos-team/masala-software/pkg/config"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
	pkgredis "github.com/digitos-team/masala-software/pkg/redis"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (pkgredis.Window, error)
}

// WriteRateLimit caps mutating requests per caller within a fixed window.
// Callers are keyed by user id once authenticated, else by client IP. Reads
// are never throttled. Refusals carry Retry-After in whole seconds.
func WriteRateLimit(cfg config.RateLimitConfig, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.WriteLimit <= 0 || cfg.WriteWindow <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			caller := UserIDFromContext(ctx)
			if caller == "" {
				caller = "ip:" + clientIP(r)
			}

			hit, err := store.FixedWindowAllow(ctx, "write:"+caller, int64(cfg.WriteLimit), cfg.WriteWindow)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !hit.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(hit.ResetIn.Seconds()))))
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"caller":         caller,
						"attempts":       hit.Count,
						"limit":          cfg.WriteLimit,
						"window_seconds": int(cfg.WriteWindow.Seconds()),
					}), "rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
