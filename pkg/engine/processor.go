package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/weftline/weft/pkg/errdefs"
	"github.com/weftline/weft/pkg/pipectx"
)

// Processor is one executable pipeline step. A processor declares its
// parameters and the context keys it mutates ahead of execution; the
// engine resolves parameters and binds an observer enforcing those
// declarations before Process runs.
type Processor interface {
	// Name returns the fully-qualified processor identity referenced by
	// node specs (e.g. "weft.math.add").
	Name() string

	// DeclaredParams returns the parameter declarations for this
	// processor, including any defaults.
	DeclaredParams() []pipectx.ParamSpec

	// CreatedKeys returns the context keys this processor may create or
	// update.
	CreatedKeys() []string

	// SuppressedKeys returns the context keys this processor may delete.
	SuppressedKeys() []string

	// Process executes the step. All context mutation goes through the
	// observer; params is the fully-resolved parameter set.
	Process(ctx context.Context, data pipectx.Context, obs *pipectx.Observer, params map[string]interface{}) error
}

// ProcessorRegistry maps processor identities to implementations.
// Registration happens at startup; lookups are concurrent-safe.
type ProcessorRegistry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewProcessorRegistry creates an empty processor registry.
func NewProcessorRegistry() *ProcessorRegistry {
	return &ProcessorRegistry{
		processors: make(map[string]Processor),
	}
}

// Register adds a processor to the registry, replacing any existing
// registration under the same name.
func (r *ProcessorRegistry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[p.Name()] = p
}

// Get returns the processor registered under name.
func (r *ProcessorRegistry) Get(name string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[name]
	if !ok {
		return nil, errdefs.NewConfigurationError("processor not registered", nil).
			WithCode(errdefs.ErrCodeUnknownProcessor).
			WithProcessor(name)
	}
	return p, nil
}

// Names returns the registered processor names in sorted order.
func (r *ProcessorRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.processors))
	for name := range r.processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
