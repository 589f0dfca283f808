package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/pricebook-backend/api/responses"
	"github.com/angelmondragon/pricebook-backend/pkg/config"
	"github.com/angelmondragon/pricebook-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
	"github.com/angelmondragon/pricebook-backend/pkg/logger"
	"github.com/angelmondragon/pricebook-backend/pkg/redis"
)

const (
	envHeader        = "X-Pricebook-Env"
	readinessTimeout = 2 * time.Second
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and, when configured, redis.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if dbP == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not configured"))
			return
		}
		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database ping failed"))
			return
		}

		checks := map[string]string{"database": "ok", "redis": "disabled"}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis ping failed"))
				return
			}
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
