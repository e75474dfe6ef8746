package middleware

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles requests per client IP and path with a fixed window
// counter in Redis, shared across all server processes. When Redis is down
// or not configured the limiter degrades to a pass-through so the auth
// endpoints stay available.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: limit, window: window}
}

func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	if l.rdb == nil || l.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ratelimit:" + clientIP(r) + ":" + r.URL.Path

		count, err := l.rdb.Incr(r.Context(), key).Result()
		if err != nil {
			log.Printf("rate limiter unavailable, allowing request: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			if err := l.rdb.Expire(r.Context(), key, l.window).Err(); err != nil {
				log.Printf("rate limiter expire failed for %s: %v", key, err)
			}
		}

		if count > int64(l.limit) {
			ttl, err := l.rdb.TTL(r.Context(), key).Result()
			if err != nil || ttl < 0 {
				ttl = l.window
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
