package ratelimit

import "sync"

// Limiter manages one token bucket per connector.
//
// Buckets are created lazily on first use with the capacity and refill rate
// supplied by the caller, and are keyed by connector name. A configuration
// reload that changes a connector's rate parameters takes effect by calling
// Reset for that connector.
type Limiter struct {
	buckets map[string]*TokenBucket
	mu      sync.Mutex
}

// NewLimiter creates an empty limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		buckets: make(map[string]*TokenBucket),
	}
}

// Allow checks admission for one request on the named connector.
// The bucket is created on first use with the given parameters.
func (l *Limiter) Allow(connector string, capacity int, refillPerSec float64) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[connector]
	if !ok {
		bucket = NewTokenBucket(capacity, refillPerSec)
		l.buckets[connector] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

// Reset drops the bucket for a connector so the next request creates a fresh
// one. Used when connector policies are replaced at runtime.
func (l *Limiter) Reset(connector string) {
	l.mu.Lock()
	delete(l.buckets, connector)
	l.mu.Unlock()
}

// ResetAll drops every bucket.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	l.buckets = make(map[string]*TokenBucket)
	l.mu.Unlock()
}
