package httpmw

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimit caps requests per second per client IP, counted in redis
// so the cap spans replicas. If redis is unreachable the request goes
// through: the limiter degrades open, the API stays up.
func RateLimit(rdb *redis.Client, maxRequests int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + clientIP(r)
			ctx := r.Context()

			count, err := rdb.Get(ctx, key).Int()
			if err == nil && count >= maxRequests {
				http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
				return
			}
			pipe := rdb.Pipeline()
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, time.Second)
			_, _ = pipe.Exec(ctx)

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts RemoteAddr as rewritten by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
