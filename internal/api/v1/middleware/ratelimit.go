package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/deepgram/relay/internal/config"
	"github.com/deepgram/relay/pkg/httpext"
	"github.com/deepgram/relay/pkg/logger"
	"github.com/deepgram/relay/pkg/ratelimit"
)

// ChatLimitKey names the budget shared by the chat endpoints and /ws frames
const ChatLimitKey = "chat"

// RateLimit rejects callers that exceed cfg.MaxHits per window. When the limiter's
// backing store fails the request is let through so an unavailable Redis never takes the API down.
func RateLimit(limitKey string, cfg config.RateLimitConfig, limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)

			allowed, err := limiter.Allow(r.Context(), limitKey+":"+ip)
			if err != nil {
				logger.Error(logger.MIDDLEWARE, "Rate limit store unavailable for %s: %v", limitKey, err)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				logger.Warn(logger.MIDDLEWARE, "Rate limit exceeded for %s on %s", ip, limitKey)
				httpext.JsonError(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP uses X-Forwarded-For if behind proxy, otherwise remote address
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
