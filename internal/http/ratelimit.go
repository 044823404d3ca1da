package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimiter hands out a token bucket per key, usually the client IP.
// Buckets idle for longer than the TTL are dropped by Sweep.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows burst requests per key, refilled at perMinute.
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether a request for key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.lim.AllowN(now, 1)
}

// Sweep drops buckets that have not been used within the TTL and returns how many were removed.
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.ttl {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// RateLimit rejects requests with 429 once the client IP exceeds its bucket.
// onLimited, when set, is called for each rejected request.
func RateLimit(l *RateLimiter, onLimited func(r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIPFromContext(r.Context())
			if ip == "" {
				ip = RemoteIP(r)
			}

			if !l.Allow(ip) {
				if onLimited != nil {
					onLimited(r)
				}
				log.Warn().Str("client_ip", ip).Str("path", r.URL.Path).Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
