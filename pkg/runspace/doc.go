// Package runspace expands parameter axes into an auditable batch of
// runs. A Plan fixes the axes, combination mode (by_position zip or
// combinatorial product), and an optional run-count ceiling; its plan
// identity and inputs identity are content hashes computed once and
// unaffected by retries. A Launch is one attempt to execute a plan: the
// launch id is stable across retries while the attempt counter
// increments, and expansion yields self-contained RunDescriptors ready
// for dispatch to any executor.
package runspace
