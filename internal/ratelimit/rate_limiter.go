// rate_limiter.go - Per-provider request-per-minute limiting
//
// Free tiers enforce a requests-per-minute cap on top of the daily quota.
// A provider whose bucket is empty is skipped by the cascade instead of
// being called and answering 429.

package ratelimit

import (
	"sync"
	"time"
)

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens         int
	maxTokens      int
	refillRate     time.Duration
	lastRefillTime time.Time
	now            func() time.Time
	mu             sync.Mutex
}

// NewRateLimiter creates a new rate limiter
// maxTokens: burst size
// refillRate: time between token refills
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return newRateLimiter(maxTokens, refillRate, time.Now)
}

func newRateLimiter(maxTokens int, refillRate time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		lastRefillTime: now(),
		now:            now,
	}
}

// PerMinute builds a limiter for rpm requests per minute.
// Like the quota tracker it keeps a 20% safety margin: 15 RPM becomes 12.
func PerMinute(rpm int) *RateLimiter {
	return perMinute(rpm, time.Now)
}

func perMinute(rpm int, now func() time.Time) *RateLimiter {
	safe := rpm * 80 / 100
	if safe < 1 {
		safe = 1
	}
	return newRateLimiter(safe, time.Minute/time.Duration(safe), now)
}

// refill must be called with mu held.
func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefillTime)
	tokensToAdd := int(elapsed / rl.refillRate)

	if tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		// Keep the remainder so partial intervals are not lost
		rl.lastRefillTime = rl.lastRefillTime.Add(time.Duration(tokensToAdd) * rl.refillRate)
	}
}

// Allow consumes a token if one is available and never blocks.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens <= 0 {
		return false
	}
	rl.tokens--
	return true
}

// Registry holds one limiter per provider. Providers without a limiter
// are unlimited.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*RateLimiter
	now      func() time.Time
}

// NewRegistry creates a registry from provider -> requests per minute.
// Zero or negative values mean unlimited.
func NewRegistry(rpm map[string]int) *Registry {
	return newRegistry(rpm, time.Now)
}

func newRegistry(rpm map[string]int, now func() time.Time) *Registry {
	r := &Registry{limiters: make(map[string]*RateLimiter), now: now}
	for name, n := range rpm {
		if n > 0 {
			r.limiters[name] = perMinute(n, now)
		}
	}
	return r
}

// Allow reports whether provider may be called now and takes a token.
func (r *Registry) Allow(provider string) bool {
	if r == nil {
		return true
	}
	r.mu.RLock()
	rl, ok := r.limiters[provider]
	r.mu.RUnlock()
	if !ok {
		return true
	}
	return rl.Allow()
}
