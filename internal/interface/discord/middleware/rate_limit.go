// Package middleware contains the steps every command passes through before
// its handler runs: throttling, capability resolution and panic recovery.
package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// Token bucket per user. Idle buckets are dropped after IdleTTL.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// PerSecond is the sustained number of commands per user.
	PerSecond float64

	// Burst is how many commands a user may send at once.
	Burst int

	// IdleTTL is how long an unused bucket is kept.
	IdleTTL time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		PerSecond: 0.5,
		Burst:     3,
		IdleTTL:   10 * time.Minute,
		Now:       time.Now,
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles commands per user.
type RateLimiter struct {
	config RateLimitConfig

	mu        sync.Mutex
	buckets   map[int64]*bucket
	lastSweep time.Time
}

// NewRateLimiter creates a new rate limiter with the given configuration.
// Zero fields fall back to the defaults.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if config.PerSecond <= 0 {
		config.PerSecond = def.PerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}
	if config.Now == nil {
		config.Now = def.Now
	}
	return &RateLimiter{
		config:    config,
		buckets:   make(map[int64]*bucket),
		lastSweep: config.Now(),
	}
}

// Allow reports whether userID may run a command now, consuming a token if so.
func (rl *RateLimiter) Allow(userID int64) bool {
	now := rl.config.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.config.IdleTTL {
		rl.sweepLocked(now)
	}

	b, ok := rl.buckets[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rl.config.PerSecond), rl.config.Burst)}
		rl.buckets[userID] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1)
}

// Tracked returns the number of live buckets.
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for id, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= rl.config.IdleTTL {
			delete(rl.buckets, id)
		}
	}
	rl.lastSweep = now
}
