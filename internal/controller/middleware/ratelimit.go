package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterTTL bounds how long an idle client keeps its limiter alive.
const limiterTTL = 5 * time.Minute

// RateLimit limits each client to rps requests per second with the given
// burst. rps=0 disables limiting. Clients are told apart by API key, or
// by remote address when no key is sent.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}

		limiters := sync.Map{} // clientKey -> *cachedLimiter

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := getOrCreateLimiter(&limiters, clientKey(r), rps, burst)
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if key := r.Header.Get("X-Api-Key"); key != "" {
		return key
	}
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		return authHeader
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func getOrCreateLimiter(limiters *sync.Map, key string, rps float64, burst int) *rate.Limiter {
	if cached, ok := limiters.Load(key); ok {
		c := cached.(*cachedLimiter)
		if time.Now().Before(c.expiresAt) {
			return c.limiter
		}
		// expired, need to create new
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	limiters.Store(key, &cachedLimiter{
		limiter:   limiter,
		expiresAt: time.Now().Add(limiterTTL),
	})
	return limiter
}
