package pipectx

import (
	"sort"
	"sync"
)

// Context is the key-value store of ancillary metadata traveling
// alongside primary data through a run. A context instance belongs to
// exactly one run and is discarded at run end.
//
// Processors never mutate a Context directly; all mutation goes through
// an Observer bound to the processor's declared key sets. Direct Set and
// Delete exist for the framework itself (run-space value injection,
// test setup).
type Context interface {
	// Get returns the value for key and whether it is present.
	Get(key string) (interface{}, bool)

	// Set stores value under key.
	Set(key string, value interface{})

	// Delete removes key, reporting whether it was present.
	Delete(key string) bool

	// Has reports whether key is present.
	Has(key string) bool

	// Keys returns all present keys in sorted order.
	Keys() []string

	// Snapshot returns a copy of the visible key-value state.
	Snapshot() map[string]interface{}
}

// SingleContext is the flat, single-layer context implementation.
// Safe for concurrent use.
type SingleContext struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewSingleContext creates an empty flat context.
func NewSingleContext() *SingleContext {
	return &SingleContext{values: make(map[string]interface{})}
}

// NewSingleContextFrom creates a flat context seeded with the given values.
func NewSingleContextFrom(values map[string]interface{}) *SingleContext {
	c := NewSingleContext()
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Get returns the value for key and whether it is present.
func (c *SingleContext) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set stores value under key.
func (c *SingleContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Delete removes key, reporting whether it was present.
func (c *SingleContext) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	delete(c.values, key)
	return ok
}

// Has reports whether key is present.
func (c *SingleContext) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.values[key]
	return ok
}

// Keys returns all present keys in sorted order.
func (c *SingleContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the current key-value state.
func (c *SingleContext) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		snap[k] = v
	}
	return snap
}
