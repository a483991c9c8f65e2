// Package cache provides an in-process key-value cache with per-entry TTL.
package cache

import (
	"sync"
	"time"
)

// Cache is a key-value store whose entries may expire.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it is present and not expired.
	Get(key K) (V, bool)
	// Set stores value. ttl <= 0 means the entry never expires.
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
	PurgeExpired()
}

var now = time.Now

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

func (e entry[V]) expired(at time.Time) bool {
	return !e.expiresAt.IsZero() && at.After(e.expiresAt)
}

// TTL is a map-backed Cache safe for concurrent use. Expired entries are
// dropped lazily on Set or by PurgeExpired.
type TTL[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
}

func NewTTL[K comparable, V any]() *TTL[K, V] {
	return &TTL[K, V]{items: make(map[K]entry[V])}
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || e.expired(now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTL[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := now()
	var exp time.Time
	if ttl > 0 {
		exp = at.Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: exp}
	c.purge(at)
}

func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts the entries that have not expired.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	at := now()
	n := 0
	for _, e := range c.items {
		if !e.expired(at) {
			n++
		}
	}
	return n
}

func (c *TTL[K, V]) PurgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge(now())
}

func (c *TTL[K, V]) purge(at time.Time) {
	for k, e := range c.items {
		if e.expired(at) {
			delete(c.items, k)
		}
	}
}

var _ Cache[string, int] = (*TTL[string, int])(nil)
