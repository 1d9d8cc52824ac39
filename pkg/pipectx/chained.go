package pipectx

import "sort"

// ChainedContext composes an ordered sequence of context layers. Reads
// search outward from the innermost (first) layer; writes and deletes
// always target the innermost layer only. Outer layers are read-only from
// the chain's perspective.
type ChainedContext struct {
	layers []Context
}

// NewChainedContext creates a chained context over the given layers,
// innermost first. A chain with no layers is given a fresh writable layer.
func NewChainedContext(layers ...Context) *ChainedContext {
	if len(layers) == 0 {
		layers = []Context{NewSingleContext()}
	}
	return &ChainedContext{layers: layers}
}

// Layers returns the number of layers in the chain.
func (c *ChainedContext) Layers() int {
	return len(c.layers)
}

// Get searches the layers outward and returns the first match.
func (c *ChainedContext) Get(key string) (interface{}, bool) {
	for _, layer := range c.layers {
		if v, ok := layer.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// Set writes to the innermost layer.
func (c *ChainedContext) Set(key string, value interface{}) {
	c.layers[0].Set(key, value)
}

// Delete removes key from the innermost layer only. A key shadowed from
// an outer layer remains visible after deletion.
func (c *ChainedContext) Delete(key string) bool {
	return c.layers[0].Delete(key)
}

// Has reports whether any layer holds key.
func (c *ChainedContext) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys returns the union of all layers' keys in sorted order.
func (c *ChainedContext) Keys() []string {
	seen := make(map[string]bool)
	for _, layer := range c.layers {
		for _, k := range layer.Keys() {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns the merged visible state, inner layers shadowing outer.
func (c *ChainedContext) Snapshot() map[string]interface{} {
	snap := make(map[string]interface{})
	for i := len(c.layers) - 1; i >= 0; i-- {
		for k, v := range c.layers[i].Snapshot() {
			snap[k] = v
		}
	}
	return snap
}
