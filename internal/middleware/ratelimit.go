package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/eRom/health-sub001/internal/pkg/errors"
	"github.com/eRom/health-sub001/internal/pkg/response"
)

// Counter increments a key inside a fixed window. *database.Redis implements it.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error)
}

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	Name              string
	RequestsPerMinute int
	BurstSize         int
}

// DefaultRateLimitConfig returns the limits applied to the JSON API.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Name:              "api",
		RequestsPerMinute: 120,
		BurstSize:         20,
	}
}

// AuthRateLimitConfig returns the stricter limits applied to credential endpoints.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Name:              "auth",
		RequestsPerMinute: 10,
		BurstSize:         5,
	}
}

// RateLimit returns a fixed-window rate limiting middleware keyed on the client IP.
// Counter errors let the request through.
func RateLimit(counter Counter, cfg RateLimitConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:%s:%s", cfg.Name, ClientIP(r))
			window := time.Minute

			count, err := counter.IncrWithExpire(r.Context(), key, window)
			if err != nil {
				logger.Warn("rate limit counter unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			remaining := cfg.RequestsPerMinute - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > cfg.RequestsPerMinute+cfg.BurstSize {
				rateLimitedTotal.WithLabelValues(cfg.Name).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				response.Error(w, &apierrors.RateLimitError{Cooldown: window})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RecordRateLimited counts a rejection made outside this package's middleware.
func RecordRateLimited(limiter string) {
	rateLimitedTotal.WithLabelValues(limiter).Inc()
}
