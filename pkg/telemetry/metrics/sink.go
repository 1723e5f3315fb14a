package metrics

import (
	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SinkMetrics tracks the out-of-band exchange sinks (audit log, events).
//
// Metrics:
//   - relay_gateway_sink_dropped_total: Exchanges dropped because a sink buffer was full
//   - relay_gateway_sink_errors_total: Failed sink deliveries
type SinkMetrics struct {
	dropped *prometheus.CounterVec
	errors  *prometheus.CounterVec
}

// NewSinkMetrics creates and registers sink metrics with the provided registry.
func NewSinkMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SinkMetrics {
	sm := &SinkMetrics{
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sink_dropped_total",
				Help:      "Total number of exchanges dropped by a full sink buffer",
			},
			[]string{"sink"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sink_errors_total",
				Help:      "Total number of failed sink deliveries",
			},
			[]string{"sink"},
		),
	}

	registry.MustRegister(sm.dropped, sm.errors)

	return sm
}

// RecordDrop counts one dropped exchange.
func (sm *SinkMetrics) RecordDrop(sink string) {
	sm.dropped.WithLabelValues(sink).Inc()
}

// RecordError counts one failed delivery.
func (sm *SinkMetrics) RecordError(sink string) {
	sm.errors.WithLabelValues(sink).Inc()
}
