package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// RateLimit gives each client address limit requests per window through
// the shared limiter. When the limiter itself fails the request is served.
func RateLimit(limiter domain.RateLimiter, limit int, window time.Duration, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds())))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := limiter.Allow(r.Context(), "ratelimit:api:"+clientIP(r), limit, window)
			switch {
			case err != nil:
				logger.WarnContext(r.Context(), "rate limiter unavailable, serving anyway",
					slog.String("error", err.Error()))
			case !ok:
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP takes the first valid X-Forwarded-For hop, then X-Real-IP,
// then the peer address.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); first != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
