package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/townielabs/townie-backend/api/responses"
	"github.com/townielabs/townie-backend/pkg/config"
	"github.com/townielabs/townie-backend/pkg/db"
	"github.com/townielabs/townie-backend/pkg/logger"
	"github.com/townielabs/townie-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

// HealthLive reports process liveness only.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady checks the backing stores before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["db"] = "skipped"
		if dbP != nil {
			checks["db"] = pingStatus(ctx, logg, "db", dbP.Ping)
		}
		checks["redis"] = "skipped"
		if redisP != nil {
			checks["redis"] = pingStatus(ctx, logg, "redis", redisP.Ping)
		}
		for _, status := range checks {
			if status != "ok" {
				healthy = false
			}
		}

		payload := map[string]any{
			"status": "ready",
			"env":    cfg.App.Env,
			"checks": checks,
		}
		if !healthy {
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

func pingStatus(ctx context.Context, logg *logger.Logger, name string, ping func(context.Context) error) string {
	if err := ping(ctx); err != nil {
		if logg != nil {
			logg.Error(ctx, "health check failed: "+name, err)
		}
		return "unavailable"
	}
	return "ok"
}
