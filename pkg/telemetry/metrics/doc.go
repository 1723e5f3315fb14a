// Package metrics provides Prometheus metrics for the relay.
//
// # Metrics
//
//	relay_gateway_requests_total{outcome,status}        counter
//	relay_gateway_upstream_duration_seconds{outcome}    histogram
//	relay_gateway_validation_failures_total{reason}     counter
//	relay_gateway_inflight_requests                     gauge
//	relay_gateway_sink_dropped_total{sink}              counter
//	relay_gateway_sink_errors_total{sink}               counter
//
// Outcome labels are the upstream outcome kinds plus "validation_error".
// Labels are drawn from small fixed sets; caller-supplied values such as
// user or session IDs never become labels.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
//	done := collector.TrackInflight()
//	defer done()
//	collector.RecordExchange("success", 200, latency)
package metrics
