package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/farmbasket-dev/farmbasket-backend/api/responses"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a fixed-window limit keyed by authenticated user when
// available, falling back to the remote address for anonymous traffic.
// Limiter outages fail open.
func RateLimit(limiter rateLimiter, logg *logger.Logger, scope string, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + r.RemoteAddr
			if userID, ok := UserIDFromContext(r.Context()); ok {
				key = scope + ":" + userID.String()
			}

			allowed, _, err := limiter.FixedWindowAllow(r.Context(), key, limit, window)
			if err != nil {
				logg.Warn(logg.WithField(r.Context(), "rate_limit_scope", scope), "rate limiter unavailable; allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
