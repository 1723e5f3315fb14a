package config

import "time"

// Config is the root configuration structure for the relay gateway.
// It is built once at startup and passed by pointer to the components that
// need it; request handling never looks configuration up ambiently.
type Config struct {
	// Server contains inbound HTTP server configuration including listen
	// address, timeouts and request size limits.
	Server ServerConfig `yaml:"server"`

	// Upstream contains configuration for the AI inference service that
	// requests are forwarded to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Audit contains configuration for the optional exchange audit log.
	Audit AuditConfig `yaml:"audit"`

	// Events contains configuration for the optional NATS exchange events.
	Events EventsConfig `yaml:"events"`
}

// EffectiveWriteTimeout returns the server write timeout raised, when
// needed, to the upstream timeout plus WriteTimeoutMargin, so a reply
// produced at the end of the upstream budget (including the 504) can still
// be written. Zero means no write timeout and is returned unchanged.
func (c *Config) EffectiveWriteTimeout() time.Duration {
	wt := c.Server.WriteTimeout
	if wt == 0 {
		return 0
	}
	return max(wt, c.Upstream.Timeout+WriteTimeoutMargin)
}

// ServerConfig contains configuration for the inbound HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., ":3000", "127.0.0.1:3000").
	// The PORT environment variable sets this to ":<PORT>".
	// Default: ":3000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It is raised to upstream.timeout + 5s when lower, otherwise
	// a slow upstream reply could never be relayed.
	// Default: 90s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the size of an inbound request body.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// UpstreamConfig contains configuration for the upstream inference service.
type UpstreamConfig struct {
	// BaseURL is the upstream base URL (FASTAPI_URL).
	// Default: "http://localhost:8000"
	BaseURL string `yaml:"base_url"`

	// Path is appended to BaseURL for every forwarded request.
	// Default: "/generate_ai_response"
	Path string `yaml:"path"`

	// Timeout bounds a single upstream call (AI_REQUEST_TIMEOUT, in
	// milliseconds, when set from the environment).
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxResponseBytes limits how much of an upstream response is read.
	// Default: 10485760 (10MB)
	MaxResponseBytes int64 `yaml:"max_response_bytes"`

	// MaxIdleConns is the maximum number of idle pooled connections.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the maximum number of idle pooled connections
	// to the upstream host.
	// Default: 20
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes pooled connections idle for longer than this.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// DialTimeout bounds TCP connection establishment.
	// Default: 10s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables redaction of tokens, credentials and emails in
	// string log attributes.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name identifies the pattern.
	Name string `yaml:"name"`

	// Pattern is a regular expression (RE2 syntax).
	Pattern string `yaml:"pattern"`

	// Replacement is substituted for every match.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "relay"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "gateway"
	Subsystem string `yaml:"subsystem"`

	// UpstreamDurationBuckets defines histogram buckets (seconds) for
	// upstream latency.
	// Default: [0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60]
	UpstreamDurationBuckets []float64 `yaml:"upstream_duration_buckets"`
}

// AuditConfig contains configuration for the exchange audit log.
type AuditConfig struct {
	// Enabled turns on audit recording.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Driver selects the database/sql SQLite driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the SQLite database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// BufferSize is the async recorder buffer size.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// WriteTimeout bounds a single record write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RetentionDays is how long records are kept. 0 keeps records forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a standard 5-field cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// EventsConfig contains configuration for NATS exchange events.
type EventsConfig struct {
	// Enabled turns on event publishing.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// NatsURL is the NATS server URL.
	// Default: "nats://127.0.0.1:4222"
	NatsURL string `yaml:"nats_url"`

	// Subject is the subject events are published to.
	// Default: "relay.exchanges"
	Subject string `yaml:"subject"`

	// BufferSize is the async publisher buffer size.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`
}
