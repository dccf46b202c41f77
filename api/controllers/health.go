package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/partstrack-backend/api/responses"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

const (
	envHeader          = "X-PartsTrack-Env"
	readinessTimeout   = 2 * time.Second
	readinessSkipped   = "disabled"
	readinessAvailable = "ok"
)

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each dependency. A nil redis pinger means redis is not
// configured and is reported as disabled.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP Pinger, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"database": readinessAvailable, "redis": readinessSkipped}
		var failed error
		if dbP == nil {
			checks["database"] = "missing"
			failed = pkgerrors.New(pkgerrors.CodeDependency, "database not configured")
		} else if err := dbP.Ping(ctx); err != nil {
			checks["database"] = "unavailable"
			failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable")
		}
		if redisP != nil {
			checks["redis"] = readinessAvailable
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = "unavailable"
				if failed == nil {
					failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable")
				}
			}
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.As(failed).WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
