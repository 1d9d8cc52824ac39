package pipectx

import (
	"sync"

	"github.com/weftline/weft/pkg/errdefs"
)

// Observer mediates all context mutation performed by one processor
// during one execution. It is bound to a single context instance and to
// the two key sets the processor declared ahead of execution: the keys it
// may create and the keys it may suppress. Any attempted mutation outside
// those sets fails before it reaches the underlying context.
//
// The create/delete checks are applied atomically per key, so two
// concurrent writers cannot both pass validation for a mutation that
// should have been rejected once the first succeeded.
type Observer struct {
	mu         *sync.Mutex
	target     Context
	processor  string
	created    map[string]bool
	suppressed map[string]bool
}

// NewObserver creates an observer bound to ctx for the named processor,
// with its declared created-keys and suppressed-keys sets.
func NewObserver(ctx Context, processor string, createdKeys, suppressedKeys []string) *Observer {
	return &Observer{
		mu:         &sync.Mutex{},
		target:     ctx,
		processor:  processor,
		created:    keySet(createdKeys),
		suppressed: keySet(suppressedKeys),
	}
}

// Processor returns the name of the processor this observer is bound to.
func (o *Observer) Processor() string {
	return o.processor
}

// NotifyUpdate validates and applies a create or update of key. The key
// must be in the declared created-keys set; established keys are held to
// the same allow-list.
func (o *Observer) NotifyUpdate(key string, value interface{}) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.created[key] {
		return errdefs.NewValidationError("context key not declared as created", nil).
			WithCode(errdefs.ErrCodeKeyNotDeclared).
			WithKey(key).
			WithProcessor(o.processor)
	}

	o.target.Set(key, value)
	return nil
}

// NotifyDelete validates and applies a suppression of key. The key must
// be in the declared suppressed-keys set.
func (o *Observer) NotifyDelete(key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.suppressed[key] {
		return errdefs.NewValidationError("context key not declared as suppressed", nil).
			WithCode(errdefs.ErrCodeKeyNotDeclared).
			WithKey(key).
			WithProcessor(o.processor)
	}

	o.target.Delete(key)
	return nil
}

// ForItem rebinds a collection-context observer to one item index. The
// derived observer shares the declared key sets and the validation lock,
// and cannot write into the shared layer.
func (o *Observer) ForItem(index int) (*Observer, error) {
	coll, ok := o.target.(*CollectionContext)
	if !ok {
		return nil, errdefs.NewValidationError("observer target is not a collection context", nil).
			WithProcessor(o.processor)
	}

	item, err := coll.Item(index)
	if err != nil {
		return nil, err
	}

	return o.rebind(item), nil
}

// ForShared rebinds a collection-context observer to the shared top-level
// layer explicitly.
func (o *Observer) ForShared() (*Observer, error) {
	coll, ok := o.target.(*CollectionContext)
	if !ok {
		return nil, errdefs.NewValidationError("observer target is not a collection context", nil).
			WithProcessor(o.processor)
	}

	return o.rebind(coll.Shared()), nil
}

// rebind produces an observer with the same declarations and lock bound
// to a different target.
func (o *Observer) rebind(target Context) *Observer {
	return &Observer{
		mu:         o.mu,
		target:     target,
		processor:  o.processor,
		created:    o.created,
		suppressed: o.suppressed,
	}
}

func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
