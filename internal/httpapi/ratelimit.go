package httpapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Client buckets idle longer than clientIdleTTL are pruned once the table
// grows past maxTrackedClients.
const (
	maxTrackedClients = 4096
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter provides per-client rate limiting using a token bucket per key.
type RateLimiter struct {
	limiters   map[string]*clientLimiter
	mu         sync.Mutex
	rateLimit  rate.Limit
	burstLimit int
	now        func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter with the specified rate and burst.
// rate is requests per second, burst is the maximum burst size.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
		now:        time.Now,
	}
}

// Allow reports whether a request from key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	return r.getLimiter(key).AllowN(r.now(), 1)
}

// Clients returns the number of tracked client buckets.
func (r *RateLimiter) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// getLimiter returns the limiter for key, creating one if needed.
func (r *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if cl, exists := r.limiters[key]; exists {
		cl.lastSeen = now
		return cl.limiter
	}

	if len(r.limiters) >= maxTrackedClients {
		r.pruneLocked(now)
	}

	cl := &clientLimiter{limiter: rate.NewLimiter(r.rateLimit, r.burstLimit), lastSeen: now}
	r.limiters[key] = cl
	return cl.limiter
}

func (r *RateLimiter) pruneLocked(now time.Time) {
	for k, cl := range r.limiters {
		if now.Sub(cl.lastSeen) > clientIdleTTL {
			delete(r.limiters, k)
		}
	}
}
