// Package middleware provides optional before/after hook pairs for the
// dispatch pipeline: Prometheus request metrics and OpenTelemetry
// tracing. Both observe the decided response from the after-hook side
// and can never alter it.
package middleware
