// Package pipectx implements the context and observer subsystem: the
// validated read/write contract for ancillary key-value state flowing
// between pipeline nodes.
//
// Three context shapes exist: SingleContext (one flat mapping),
// CollectionContext (per-item contexts plus a shared top-level layer),
// and ChainedContext (ordered layers where reads search outward and
// writes target the innermost layer only).
//
// A processor declares, ahead of execution, the keys it may create and
// the keys it may suppress. The framework then constructs an Observer
// bound to those sets and the active context; every mutation the
// processor performs goes through the observer and fails validation if
// the key is outside the declared sets. Parameter resolution follows the
// strict priority order node configuration, context, declared default.
package pipectx
