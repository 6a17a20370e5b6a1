package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

// Pinger checks connectivity to a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-QuestPark-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-QuestPark-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]Pinger{"database": dbP, "redis": redisP}
		for name, pinger := range checks {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
