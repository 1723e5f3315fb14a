package metrics

import (
	"strconv"
	"time"

	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks metrics related to request processing.
//
// Metrics:
//   - relay_gateway_requests_total: Requests by outcome and caller status
//   - relay_gateway_upstream_duration_seconds: Upstream call latency
//   - relay_gateway_validation_failures_total: Rejected requests by reason
//   - relay_gateway_inflight_requests: Requests currently being served
type RequestMetrics struct {
	requestsTotal      *prometheus.CounterVec
	upstreamDuration   *prometheus.HistogramVec
	validationFailures *prometheus.CounterVec
	inflight           prometheus.Gauge
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of relay requests by outcome and caller status",
			},
			[]string{"outcome", "status"},
		),

		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_duration_seconds",
				Help:      "Duration of upstream calls in seconds",
				Buckets:   cfg.UpstreamDurationBuckets,
			},
			[]string{"outcome"},
		),

		validationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_failures_total",
				Help:      "Total number of requests rejected before forwarding",
			},
			[]string{"reason"},
		),

		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "inflight_requests",
				Help:      "Number of relay requests currently being served",
			},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.upstreamDuration,
		rm.validationFailures,
		rm.inflight,
	)

	return rm
}

// RecordRequest counts one request.
func (rm *RequestMetrics) RecordRequest(outcome string, status int) {
	rm.requestsTotal.WithLabelValues(outcome, strconv.Itoa(status)).Inc()
}

// RecordUpstreamDuration observes one upstream call.
func (rm *RequestMetrics) RecordUpstreamDuration(outcome string, latency time.Duration) {
	rm.upstreamDuration.WithLabelValues(outcome).Observe(latency.Seconds())
}

// RecordValidationFailure counts one rejected request.
func (rm *RequestMetrics) RecordValidationFailure(reason string) {
	rm.validationFailures.WithLabelValues(reason).Inc()
}
