// Package telemetry provides structured logging and Prometheus metrics
// for the Weft engine. Logging is zerolog-based with run, launch, and
// node correlation fields; metrics cover run and node execution plus
// trace stream health.
package telemetry
