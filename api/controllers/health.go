package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/digitos-team/masala-software/api/responses"
	"github.com/digitos-team/masala-software/pkg/config"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/logger"
)

const readinessTimeout = 2 * time.Second

const envHeader = "X-Masala-Env"

// Pinger is anything readiness can probe.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes each dependency. Nil dependencies are skipped so the
// API can run without redis in local mode.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed error
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				if failed == nil {
					failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
						WithDetails(map[string]any{"checks": checks})
				}
				continue
			}
			checks[name] = "ok"
		}
		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
