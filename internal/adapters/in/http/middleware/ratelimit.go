package middleware

import (
	"net/http"

	"github.com/bnema/zerowrap"

	"github.com/bnema/spaceport/internal/boundaries/out"
)

// RateLimit rejects requests with 429 once the global or the per-client
// bucket is empty. Either limiter may be nil.
func RateLimit(
	globalLimiter out.RateLimiter,
	ipLimiter out.RateLimiter,
	trusted TrustedProxies,
	log zerowrap.Logger,
) func(http.Handler) http.Handler {
	if globalLimiter == nil && ipLimiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if globalLimiter != nil && !globalLimiter.Allow(ctx, "global") {
				rejectRateLimited(w, r, log, "global")
				return
			}

			if ipLimiter != nil {
				ip := GetClientIP(r, trusted)
				if !ipLimiter.Allow(ctx, "ip:"+ip) {
					rejectRateLimited(w, r, log, "ip:"+ip)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, r *http.Request, log zerowrap.Logger, key string) {
	log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "http").
		Str("key", key).
		Str(zerowrap.FieldPath, r.URL.Path).
		Msg("request rate limited")

	w.Header().Set("Retry-After", "1")
	WriteError(w, http.StatusTooManyRequests, "Too Many Requests")
}
