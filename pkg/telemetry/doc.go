// Package telemetry groups the relay's observability packages.
//
//   - logging: slog setup with redaction and request-scoped attributes
//   - metrics: Prometheus counters and histograms for exchanges and sinks
//   - health: liveness, readiness and version endpoints
package telemetry
