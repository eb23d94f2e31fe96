// Package metrics defines the Prometheus instrumentation for the voice
// bridge: per-stage pipeline counters and durations plus HTTP API metrics.
package metrics
