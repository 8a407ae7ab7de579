package tracker

import (
	"sync"
	"time"
)

// Clock tells the time. Caches take a Clock so that expiry can be tested
// without waiting.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// entry is a cached value and the time it was fetched.
type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// TTLCache memoizes values for a fixed time-to-live.
//
// An entry is served while now - fetchedAt < TTL and never past that. Expired
// entries are kept so that callers can still Lookup them as a stale fallback.
type TTLCache[K comparable, V any] struct {
	ttl   time.Duration
	clock Clock

	mu      sync.Mutex
	entries map[K]entry[V]
}

// NewTTLCache returns an empty cache. A nil clock is the SystemClock.
func NewTTLCache[K comparable, V any](ttl time.Duration, clock Clock) *TTLCache[K, V] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TTLCache[K, V]{ttl: ttl, clock: clock, entries: make(map[K]entry[V])}
}

// TTL returns the cache's time-to-live.
func (c *TTLCache[K, V]) TTL() time.Duration { return c.ttl }

// Get returns the value for key if it is still fresh.
func (c *TTLCache[K, V]) Get(key K) (v V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key]
	if !found || c.clock.Now().Sub(e.fetchedAt) >= c.ttl {
		return v, false
	}
	return e.value, true
}

// Lookup returns the value for key regardless of its freshness, and its age.
func (c *TTLCache[K, V]) Lookup(key K) (v V, age time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key]
	if !found {
		return v, 0, false
	}
	return e.value, c.clock.Now().Sub(e.fetchedAt), true
}

// Put stores value for key, fetched now.
func (c *TTLCache[K, V]) Put(key K, value V) {
	c.PutAt(key, value, c.clock.Now())
}

// PutAt stores value for key with an explicit fetch time.
func (c *TTLCache[K, V]) PutAt(key K, value V, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, fetchedAt: fetchedAt}
}

// Len returns the number of entries, fresh or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge removes every entry.
func (c *TTLCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}
