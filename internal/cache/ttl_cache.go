package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/pulseboard/internal/clock"
)

// Cache is a small key/value store whose entries expire.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	DeleteFunc(fn func(key K, value V) bool) int
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an in-process Cache. Expiry is evaluated against the supplied
// clock on every read; expired entries are dropped lazily.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[K]entry[V]
}

func NewTTLCache[K comparable, V any](c clock.Clock) *TTLCache[K, V] {
	if c == nil {
		c = clock.NewSystemClock()
	}
	return &TTLCache[K, V]{
		clock:   c,
		entries: make(map[K]entry[V]),
	}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value for ttl. A non-positive ttl removes the key.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.entries, key)
		return
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(ttl)}
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeleteFunc removes every entry for which fn returns true and reports how
// many were removed.
func (c *TTLCache[K, V]) DeleteFunc(fn func(key K, value V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if fn(k, e.value) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len counts live entries and purges expired ones.
func (c *TTLCache[K, V]) Len() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	return len(c.entries)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, trimmed)
	}
	return strings.Join(values, ":")
}
