package middleware

import (
	"net/http"
	"sync"
	"time"
)

// bucket is a per-client token bucket.
type bucket struct {
	tokens   float64
	lastFill time.Time
}

// RateLimiter applies a token-bucket limit per client IP. Buckets refill at
// ratePerSec and hold at most burst tokens.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	ratePerSec float64
	burst      float64
}

// NewRateLimiter creates a limiter allowing ratePerSec sustained requests
// with bursts up to burst.
func NewRateLimiter(ratePerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets:    make(map[string]*bucket),
		ratePerSec: ratePerSec,
		burst:      float64(burst),
	}
}

// Allow reports whether a request from the given client may proceed,
// consuming a token when it does.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[client]
	if !ok {
		rl.buckets[client] = &bucket{tokens: rl.burst - 1, lastFill: now}
		return true
	}

	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * rl.ratePerSec
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastFill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// StartCleanup evicts buckets idle longer than maxIdle until ctx-free
// shutdown; it runs until the returned stop function is called.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rl.mu.Lock()
				cutoff := time.Now().Add(-maxIdle)
				for client, b := range rl.buckets {
					if b.lastFill.Before(cutoff) {
						delete(rl.buckets, client)
					}
				}
				rl.mu.Unlock()
			}
		}
	}()
	return func() { close(done) }
}

// Middleware terminates over-limit requests with 429. The client key is the
// remote IP as resolved by upstream middleware (chi RealIP).
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
