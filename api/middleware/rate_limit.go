package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/townielabs/townie-backend/api/responses"
	pkgerrors "github.com/townielabs/townie-backend/pkg/errors"
	"github.com/townielabs/townie-backend/pkg/logger"
)

const (
	apiRateLimit  = 300
	apiRateWindow = time.Minute
)

type fixedWindowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a per-actor fixed window across authenticated routes.
// Unauthenticated callers fall back to their client IP.
func RateLimit(store fixedWindowStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := UserIDFromContext(r.Context())
			if actor == "" {
				actor = clientIP(r)
			}
			allowed, count, err := store.FixedWindowAllow(r.Context(), "api:"+actor, apiRateLimit, apiRateWindow)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(r.Context(), map[string]any{
						"attempts": count,
						"limit":    apiRateLimit,
					})
					logg.Warn(logCtx, "api.rate_limit.blocked")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
