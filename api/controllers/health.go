package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gestion-ambientes/ambientes-backend/api/responses"
	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ambientes-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and redis answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ambientes-Env", cfg.App.Env)

		checks := map[string]Pinger{"database": dbPinger, "redis": redisPinger}
		failed := map[string]string{}
		for name, p := range checks {
			if p == nil {
				failed[name] = "not configured"
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			err := p.Ping(ctx)
			cancel()
			if err != nil {
				failed[name] = err.Error()
			}
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
