// Package stores persists the trace archive: launches, runs, and
// validated trace records in SQLite, with schema migrations embedded in
// the binary. The JSONL stream remains the source of truth; the archive
// is a queryable index over it.
package stores
