// Package cache provides the in-memory response cache for GET requests.
//
// Entries carry the full response (status, headers, body) and expire on a
// per-entry TTL chosen by the caller at store time, since each connector
// configures its own cache lifetime. Expired entries are dropped lazily on
// read and in bulk by Sweep, which the maintenance scheduler runs
// periodically. When the cache reaches its capacity the least recently
// accessed entry is evicted.
package cache

import (
	"net/http"
	"sync"
	"time"
)

// Entry is one cached response.
type Entry struct {
	// StatusCode is the upstream status at store time.
	StatusCode int

	// Header holds the response headers worth replaying.
	Header http.Header

	// Body is the response payload after transformation.
	Body []byte

	// ExpiresAt is when the entry stops being served.
	ExpiresAt time.Time

	// lastAccess drives LRU eviction.
	lastAccess time.Time
}

// Cache is a thread-safe response cache with per-entry TTL and LRU eviction.
type Cache struct {
	entries    map[string]*Entry
	maxEntries int
	mu         sync.Mutex

	// now is the clock source, overridable in tests.
	now func() time.Time
}

// New creates a cache bounded at maxEntries. maxEntries of 0 means
// unlimited.
func New(maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the entry for key if present and unexpired. Expired entries
// are removed on the spot.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	now := c.now()
	if now.After(e.ExpiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	e.lastAccess = now
	return e, true
}

// Put stores a response under key for the given TTL. A non-positive TTL is a
// no-op so callers can pass the connector's configured value unchecked.
func (c *Cache) Put(key string, statusCode int, header http.Header, body []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRULocked()
		}
	}

	now := c.now()
	c.entries[key] = &Entry{
		StatusCode: statusCode,
		Header:     header.Clone(),
		Body:       append([]byte(nil), body...),
		ExpiresAt:  now.Add(ttl),
		lastAccess: now,
	}
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Size returns the current number of entries, expired or not.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Clear empties the cache. Called on configuration reload.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
}

// evictLRULocked drops the least recently accessed entry. Caller must hold
// the lock.
func (c *Cache) evictLRULocked() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccess
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
