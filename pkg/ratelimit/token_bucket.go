package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket rate limiting algorithm.
//
// The bucket allows bursts up to its capacity while maintaining an average
// rate over time. Tokens refill lazily based on elapsed wall-clock time since
// the last check; each request consumes one token. Fractional refill rates
// (for example 0.5 tokens/second) are supported, so the token count is kept
// as a float.
//
// # Algorithm
//
//  1. tokens = min(capacity, tokens + elapsedSeconds * refillPerSec)
//  2. If tokens >= 1: consume one token and allow the request
//  3. Otherwise: deny
//
// # Thread Safety
//
// TokenBucket is thread-safe. The refill-then-consume sequence is atomic
// under a single mutex held only for the arithmetic.
type TokenBucket struct {
	capacity     float64   // Maximum tokens in the bucket
	tokens       float64   // Current available tokens
	refillPerSec float64   // Tokens added per second
	lastRefill   time.Time // Last time tokens were refilled
	mu           sync.Mutex

	// now is the clock source, overridable in tests.
	now func() time.Time
}

// NewTokenBucket creates a token bucket with the given capacity (burst size)
// and refill rate in tokens per second. The bucket starts full.
func NewTokenBucket(capacity int, refillPerSec float64) *TokenBucket {
	return &TokenBucket{
		capacity:     float64(capacity),
		tokens:       float64(capacity),
		refillPerSec: refillPerSec,
		lastRefill:   time.Now(),
		now:          time.Now,
	}
}

// Allow attempts to consume one token from the bucket.
// It refills tokens based on elapsed time first, then returns true if a
// token was available and consumed.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Remaining returns the number of whole tokens currently available.
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	return int(tb.tokens)
}

// refillLocked adds tokens based on elapsed time since the last refill.
// Caller must hold the lock.
func (tb *TokenBucket) refillLocked() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	tb.tokens += elapsed * tb.refillPerSec
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}
