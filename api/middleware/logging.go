package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/digitos-team/masala-software/pkg/logger"
)

// Logging writes one access line per request once the handler returns.
// Server errors log at warn so they stand out from routine traffic; health
// probes only log at debug.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			// handlers logging errors carry the request line too
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			r = r.WithContext(ctx)
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_ip":   clientIP(r),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
			}
			ctx = logg.WithFields(ctx, fields)
			switch {
			case status >= http.StatusInternalServerError:
				logg.Warn(ctx, "request failed")
			case isProbe(r.URL.Path):
				logg.Debug(ctx, "request completed")
			default:
				logg.Info(ctx, "request completed")
			}
		})
	}
}

func isProbe(path string) bool {
	return path == "/health/live" || path == "/health/ready"
}
