package pipectx

import (
	"fmt"

	"github.com/weftline/weft/pkg/errdefs"
)

// CollectionContext is the indexed context variant for batched or
// collection-shaped data: one context per item plus an optional shared
// top-level layer. Item-targeted writes never touch the shared layer and
// shared-layer writes never touch an item, unless the caller explicitly
// selects the other target.
type CollectionContext struct {
	shared *SingleContext
	items  []*SingleContext
}

// NewCollectionContext creates a collection context with size item slots
// and an empty shared layer.
func NewCollectionContext(size int) *CollectionContext {
	items := make([]*SingleContext, size)
	for i := range items {
		items[i] = NewSingleContext()
	}
	return &CollectionContext{
		shared: NewSingleContext(),
		items:  items,
	}
}

// Len returns the number of item contexts.
func (c *CollectionContext) Len() int {
	return len(c.items)
}

// Shared returns the shared top-level layer.
func (c *CollectionContext) Shared() Context {
	return c.shared
}

// Item returns the context for one item index.
func (c *CollectionContext) Item(index int) (Context, error) {
	if index < 0 || index >= len(c.items) {
		return nil, errdefs.NewValidationError(
			fmt.Sprintf("item index %d out of range [0,%d)", index, len(c.items)), nil)
	}
	return c.items[index], nil
}

// Get reads from the shared layer. Item values are read via Item(i).
func (c *CollectionContext) Get(key string) (interface{}, bool) {
	return c.shared.Get(key)
}

// Set writes to the shared layer.
func (c *CollectionContext) Set(key string, value interface{}) {
	c.shared.Set(key, value)
}

// Delete removes a key from the shared layer.
func (c *CollectionContext) Delete(key string) bool {
	return c.shared.Delete(key)
}

// Has reports whether the shared layer holds key.
func (c *CollectionContext) Has(key string) bool {
	return c.shared.Has(key)
}

// Keys returns the shared layer's keys.
func (c *CollectionContext) Keys() []string {
	return c.shared.Keys()
}

// Snapshot returns a copy of the shared layer's state.
func (c *CollectionContext) Snapshot() map[string]interface{} {
	return c.shared.Snapshot()
}
