package metrics

import (
	"time"

	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the relay's Prometheus metrics. All recording methods are
// safe for concurrent use and do nothing on a nil Collector or when metrics
// are disabled, so callers never need to guard them.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Request metrics
	requestMetrics *RequestMetrics

	// Sink metrics
	sinkMetrics *SinkMetrics
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one with the Go runtime and process collectors
// already registered.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "relay",
//		Subsystem: "gateway",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.UpstreamDurationBuckets) == 0 {
		cfg.UpstreamDurationBuckets = append([]float64(nil), config.DefaultUpstreamDurationBuckets...)
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		requestMetrics: NewRequestMetrics(cfg, registry),
		sinkMetrics:    NewSinkMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordExchange records a request that reached the upstream.
//
// Parameters:
//   - outcome: outcome kind (e.g., "success", "timeout")
//   - status: HTTP status returned to the caller
//   - latency: time spent on the upstream call
func (c *Collector) RecordExchange(outcome string, status int, latency time.Duration) {
	if !c.enabled() {
		return
	}

	c.requestMetrics.RecordRequest(outcome, status)
	c.requestMetrics.RecordUpstreamDuration(outcome, latency)
}

// RecordValidationFailure records a request rejected before forwarding.
//
// Parameters:
//   - reason: short failure label (e.g., "missing_fields", "invalid_json")
//   - status: HTTP status returned to the caller
func (c *Collector) RecordValidationFailure(reason string, status int) {
	if !c.enabled() {
		return
	}

	c.requestMetrics.RecordRequest("validation_error", status)
	c.requestMetrics.RecordValidationFailure(reason)
}

// TrackInflight increments the in-flight gauge and returns the function
// that decrements it.
func (c *Collector) TrackInflight() func() {
	if !c.enabled() {
		return func() {}
	}

	c.requestMetrics.inflight.Inc()
	return c.requestMetrics.inflight.Dec
}

// RecordSinkDrop records an exchange a sink could not accept.
//
// Parameters:
//   - sink: sink name ("audit", "events")
func (c *Collector) RecordSinkDrop(sink string) {
	if !c.enabled() {
		return
	}

	c.sinkMetrics.RecordDrop(sink)
}

// RecordSinkError records a sink delivery failure.
//
// Parameters:
//   - sink: sink name ("audit", "events")
func (c *Collector) RecordSinkError(sink string) {
	if !c.enabled() {
		return
	}

	c.sinkMetrics.RecordError(sink)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
