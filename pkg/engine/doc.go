// Package engine executes pipelines: it binds canonical graphs to
// registered processors and orchestrates runs, resolving parameters,
// enforcing declared context mutations through observers, and emitting
// the trace lifecycle for every run and node.
package engine
