// Package pricing — Redis-backed request rate limiting.
package pricing

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/pricing-engine/internal/metrics"
)

// RateLimiter enforces a per-client fixed-window request limit backed by
// Redis, so the limit holds across replicas. Windows are one minute, keyed
// by client IP. On Redis failure the limiter fails open: pricing requests
// are never dropped because the limiter store is unavailable.
type RateLimiter struct {
	rdb   *redis.Client
	limit int
}

// NewRateLimiter creates a limiter allowing perMinute requests per client.
func NewRateLimiter(rdb *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: perMinute}
}

// Middleware returns an HTTP middleware applying the limit. Responds 429
// with a JSON error once a client exhausts its window.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rateLimitKey(clientIP(r), time.Now())

		ctx := r.Context()
		count, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			slog.Warn("rate limiter unavailable, failing open", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			// First hit in this window; expire the key with slack for
			// clock skew between replicas.
			rl.rdb.Expire(ctx, key, 2*time.Minute)
		}

		if count > int64(rl.limit) {
			metrics.RateLimitRejections.Inc()
			writeError(w, "rate limit exceeded, retry later", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func rateLimitKey(ip string, now time.Time) string {
	return "ratelimit:" + ip + ":" + strconv.FormatInt(now.Unix()/60, 10)
}

// clientIP extracts the client address. The RealIP middleware has already
// rewritten RemoteAddr from X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
