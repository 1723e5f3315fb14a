package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = ":3000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = int64(1048576)

	// WriteTimeoutMargin is the time the server keeps for writing a reply
	// after the upstream budget has run out.
	WriteTimeoutMargin = 5 * time.Second

	// Upstream defaults
	DefaultUpstreamBaseURL          = "http://localhost:8000"
	DefaultUpstreamPath             = "/generate_ai_response"
	DefaultUpstreamTimeout          = 60 * time.Second
	DefaultUpstreamMaxResponseBytes = int64(10 * 1024 * 1024)
	DefaultUpstreamMaxIdleConns     = 100
	DefaultUpstreamMaxIdlePerHost   = 20
	DefaultUpstreamIdleConnTimeout  = 90 * time.Second
	DefaultUpstreamDialTimeout      = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultLoggingRedactPII = true
	DefaultMetricsEnabled   = true
	DefaultPrometheusPath   = "/metrics"
	DefaultMetricsNamespace = "relay"
	DefaultMetricsSubsystem = "gateway"

	// Audit defaults
	DefaultAuditEnabled       = false
	DefaultAuditBackend       = "sqlite"
	DefaultAuditDriver        = "sqlite"
	DefaultAuditPath          = "data/audit.db"
	DefaultAuditBufferSize    = 1000
	DefaultAuditWriteTimeout  = 5 * time.Second
	DefaultAuditRetentionDays = 30
	DefaultAuditPruneSchedule = "0 3 * * *"

	// Events defaults
	DefaultEventsEnabled    = false
	DefaultEventsNatsURL    = "nats://127.0.0.1:4222"
	DefaultEventsSubject    = "relay.exchanges"
	DefaultEventsBufferSize = 1000
)

// DefaultUpstreamDurationBuckets covers interactive latencies up to the
// default upstream timeout.
var DefaultUpstreamDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Default returns a configuration with every field set to its default.
// Boolean switches can only be defaulted here: a YAML file unmarshalled on
// top of the result keeps these values for keys it does not mention.
func Default() *Config {
	cfg := &Config{
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: DefaultLoggingRedactPII},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
		Audit:  AuditConfig{Enabled: DefaultAuditEnabled},
		Events: EventsConfig{Enabled: DefaultEventsEnabled},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Fields that
// already hold a value are preserved.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// Upstream defaults
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.Path == "" {
		cfg.Upstream.Path = DefaultUpstreamPath
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Upstream.MaxResponseBytes == 0 {
		cfg.Upstream.MaxResponseBytes = DefaultUpstreamMaxResponseBytes
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = DefaultUpstreamMaxIdleConns
	}
	if cfg.Upstream.MaxIdleConnsPerHost == 0 {
		cfg.Upstream.MaxIdleConnsPerHost = DefaultUpstreamMaxIdlePerHost
	}
	if cfg.Upstream.IdleConnTimeout == 0 {
		cfg.Upstream.IdleConnTimeout = DefaultUpstreamIdleConnTimeout
	}
	if cfg.Upstream.DialTimeout == 0 {
		cfg.Upstream.DialTimeout = DefaultUpstreamDialTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.UpstreamDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.UpstreamDurationBuckets = append([]float64(nil), DefaultUpstreamDurationBuckets...)
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.Driver == "" {
		cfg.Audit.Driver = DefaultAuditDriver
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = DefaultAuditBufferSize
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = DefaultAuditWriteTimeout
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultAuditPruneSchedule
	}

	// Events defaults
	if cfg.Events.NatsURL == "" {
		cfg.Events.NatsURL = DefaultEventsNatsURL
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = DefaultEventsSubject
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = DefaultEventsBufferSize
	}
}
