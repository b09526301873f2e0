// Package cache provides the concurrent get-or-create caches backing
// client resolution: a process-scoped ARN-to-client cache and a
// session-scoped identifier-to-ARN cache.
package cache

import (
	"strings"
	"sync"
)

// entry carries one constructed value. The once gate gives each key
// exactly one constructor run; concurrent first-callers block on it and
// observe the same value.
type entry[V any] struct {
	once sync.Once
	v    V
	err  error
}

// Cache is a concurrency-safe map with get-or-create semantics. The
// constructor for a key runs exactly once even under concurrent
// first-calls; callers never observe a torn or duplicate value.
//
// The map mutex is never held while a constructor runs: constructors
// call outward to AWS/HTTP and may block for seconds, and serializing
// unrelated keys behind them would stall every resolution.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
}

// New creates an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]*entry[V])}
}

// GetOrCreate returns the value for key, constructing and storing it if
// absent. A constructor error is returned to every waiting caller and
// nothing stays cached, so a later call can retry.
func (c *Cache[K, V]) GetOrCreate(key K, construct func() (V, error)) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.v, e.err = construct()
	})

	if e.err != nil {
		c.mu.Lock()
		if c.entries[key] == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, e.err
	}
	return e.v, nil
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries. Used for test isolation; the ARN-to-client
// cache is never cleared during normal operation.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
}

// SessionKey builds the composite key for the session-scoped
// identifier-to-ARN cache. Entries never cross session boundaries.
func SessionKey(sessionID, identifier string) string {
	return sessionID + "\x00" + identifier
}

// ClearSession drops every entry belonging to the given session. Called
// when the owning MCP session terminates.
func ClearSession[V any](c *Cache[string, V], sessionID string) {
	prefix := sessionID + "\x00"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}
