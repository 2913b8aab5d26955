// Package ratelimit implements a per-chat token bucket rate limiter.
// Thread-safe. No background goroutines — tokens are refilled lazily on each
// Allow call.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a chat has exhausted its token bucket.
var ErrRateLimited = errors.New("rate limit exceeded")

// Config configures the token bucket rate limiter.
type Config struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"` // Tokens added per minute. 0 = unlimited.
	BurstSize         int `json:"burst_size" yaml:"burst_size"`                   // Max tokens in bucket. 0 = RequestsPerMinute.
}

// Limiter is a per-chat token bucket rate limiter. Each chat gets an
// independent bucket; one noisy chat cannot exhaust another's quota.
type Limiter struct {
	mu      sync.Mutex
	buckets map[int64]*bucket
	rate    float64 // tokens per second
	burst   float64 // max bucket capacity
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewLimiter creates a rate limiter with the given configuration.
// If RequestsPerMinute is 0, Allow always succeeds (unlimited).
func NewLimiter(cfg Config) *Limiter {
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = cfg.RequestsPerMinute
	}
	if burst <= 0 {
		burst = 1 // safety floor
	}
	return &Limiter{
		buckets: make(map[int64]*bucket),
		rate:    float64(cfg.RequestsPerMinute) / 60.0,
		burst:   float64(burst),
	}
}

// Allow checks whether the chat has tokens remaining.
// Consumes one token on success. Returns ErrRateLimited when the bucket is empty.
func (l *Limiter) Allow(chatID int64) error {
	// Unlimited mode.
	if l.rate <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[chatID]
	if !ok {
		// First event: start with a full bucket.
		b = &bucket{tokens: l.burst, lastFill: now}
		l.buckets[chatID] = b
	}

	// Refill tokens based on elapsed time.
	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastFill = now

	if b.tokens < 1 {
		return ErrRateLimited
	}
	b.tokens--
	return nil
}
