package requestcache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	data      T
	createdAt time.Time
	expiresAt time.Time
	hits      int64
	seq       uint64 // insertion order, breaks eviction ties
}

// Cache is a thread-safe, time-boxed response cache. Entries expire on read
// once past their TTL; at capacity the entry with the fewest hits is evicted,
// earliest-inserted first on ties.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	maxSize int
	seq     uint64
}

// New creates a cache with the given capacity. Panics on non-positive
// capacity to fail fast on misconfiguration.
func New[T any](maxSize int) *Cache[T] {
	if maxSize <= 0 {
		panic("requestcache: capacity must be positive")
	}
	return &Cache[T]{
		entries: make(map[string]*entry[T]),
		maxSize: maxSize,
	}
}

// Get returns the cached value for key. Expired entries are removed and
// reported as a miss. Hits bump the entry's hit count, which drives eviction
// order.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	e.hits++
	return e.data, true
}

// Set stores data under key for ttl. Inserting a new key at capacity evicts
// the single least-hit entry first. Overwriting resets the hit count.
func (c *Cache[T]) Set(key string, data T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		c.evictColdestLocked()
	}

	now := time.Now()
	c.seq++
	c.entries[key] = &entry[T]{
		data:      data,
		createdAt: now,
		expiresAt: now.Add(ttl),
		seq:       c.seq,
	}
}

// Has reports whether key holds an unexpired entry, without touching the hit
// count.
func (c *Cache[T]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Delete removes key and reports whether it was present.
func (c *Cache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Cleanup removes every expired entry and returns the number removed.
func (c *Cache[T]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[T])
}

// Len returns the number of entries, expired ones included until they are
// read or cleaned up.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Must be called with lock held.
func (c *Cache[T]) evictColdestLocked() {
	var victim string
	var found bool
	var minHits int64
	var minSeq uint64

	for key, e := range c.entries {
		if !found || e.hits < minHits || (e.hits == minHits && e.seq < minSeq) {
			victim = key
			minHits = e.hits
			minSeq = e.seq
			found = true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}
