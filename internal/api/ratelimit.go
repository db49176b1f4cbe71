// Rate limiter for the placement endpoints.
// Simple in-memory token bucket per client address.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter tracks request counts per client with a fixed window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxRate int           // max requests per window
	window  time.Duration // time window
	now     func() time.Time
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a rate limiter allowing maxRate requests per window.
// Stale buckets are dropped lazily on Allow.
func NewRateLimiter(maxRate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		maxRate: maxRate,
		window:  window,
		now:     time.Now,
	}
}

// Allow checks if the given client is within rate limits.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.buckets) > 1024 {
		rl.cleanup(now)
	}

	b, ok := rl.buckets[client]
	if !ok || now.Sub(b.lastReset) >= rl.window {
		rl.buckets[client] = &bucket{tokens: rl.maxRate - 1, lastReset: now}
		return true
	}
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// RetryAfter returns how many seconds until the window resets for this client.
func (rl *RateLimiter) RetryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[client]
	if !ok {
		return 0
	}
	remaining := rl.window - rl.now().Sub(b.lastReset)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// cleanup drops expired buckets. Caller holds the lock.
func (rl *RateLimiter) cleanup(now time.Time) {
	for client, b := range rl.buckets {
		if now.Sub(b.lastReset) > 2*rl.window {
			delete(rl.buckets, client)
		}
	}
}

// clientAddr returns the caller's address, preferring the first
// X-Forwarded-For hop for proxied requests.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware wraps a handler with rate limiting. Returns 429 if exceeded.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		if !rl.Allow(client) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(client)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
