package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"PORT", "FASTAPI_URL", "AI_REQUEST_TIMEOUT",
	"RELAY_LISTEN_ADDRESS", "RELAY_UPSTREAM_PATH", "RELAY_LOG_LEVEL", "RELAY_LOG_FORMAT",
	"RELAY_METRICS_ENABLED", "RELAY_AUDIT_ENABLED", "RELAY_AUDIT_DRIVER", "RELAY_AUDIT_PATH",
	"RELAY_EVENTS_ENABLED", "RELAY_EVENTS_NATS_URL", "RELAY_EVENTS_SUBJECT",
}

// clearEnv blanks every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.ListenAddress != ":3000" {
		t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, ":3000")
	}
	if cfg.Upstream.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q, want %q", cfg.Upstream.BaseURL, "http://localhost:8000")
	}
	if cfg.Upstream.Path != "/generate_ai_response" {
		t.Errorf("Path = %q, want %q", cfg.Upstream.Path, "/generate_ai_response")
	}
	if cfg.Upstream.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Upstream.Timeout)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should be enabled by default")
	}
	if !cfg.Telemetry.Logging.RedactPII {
		t.Error("PII redaction should be enabled by default")
	}
	if cfg.Audit.Enabled || cfg.Events.Enabled {
		t.Error("audit and events should be disabled by default")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Server.ListenAddress != DefaultListenAddress {
			t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
		}
	})

	t.Run("missing default file is tolerated", func(t *testing.T) {
		clearEnv(t)
		t.Chdir(t.TempDir())
		if _, err := LoadConfig(DefaultConfigPath); err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		clearEnv(t)
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("yaml overlays defaults", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, t.TempDir(), "relay.yaml", `
server:
  listen_address: "127.0.0.1:9000"
upstream:
  base_url: "http://inference:8000"
  timeout: 5s
telemetry:
  logging:
    level: debug
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Server.ListenAddress != "127.0.0.1:9000" {
			t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
		}
		if cfg.Upstream.BaseURL != "http://inference:8000" {
			t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
		}
		if cfg.Upstream.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", cfg.Upstream.Timeout)
		}
		if cfg.Upstream.Path != DefaultUpstreamPath {
			t.Errorf("Path = %q, want default", cfg.Upstream.Path)
		}
		if !cfg.Telemetry.Metrics.Enabled {
			t.Error("metrics default lost when yaml omits it")
		}
	})

	t.Run("yaml can disable boolean defaults", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, t.TempDir(), "relay.yaml", "telemetry:\n  metrics:\n    enabled: false\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Telemetry.Metrics.Enabled {
			t.Error("metrics should be disabled")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, t.TempDir(), "relay.yaml", "server: [unclosed")
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, t.TempDir(), "relay.yaml", "upstream:\n  base_url: \"ftp://x\"\n")
		_, err := LoadConfig(path)
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
	})
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Run("service variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "8080")
		t.Setenv("FASTAPI_URL", "http://ai:9000")
		t.Setenv("AI_REQUEST_TIMEOUT", "1500")

		cfg := Default()
		if err := ApplyEnvOverrides(cfg); err != nil {
			t.Fatalf("ApplyEnvOverrides() error = %v", err)
		}
		if cfg.Server.ListenAddress != ":8080" {
			t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, ":8080")
		}
		if cfg.Upstream.BaseURL != "http://ai:9000" {
			t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
		}
		if cfg.Upstream.Timeout != 1500*time.Millisecond {
			t.Errorf("Timeout = %v, want 1.5s", cfg.Upstream.Timeout)
		}
	})

	t.Run("relay variables win over PORT", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "8080")
		t.Setenv("RELAY_LISTEN_ADDRESS", "127.0.0.1:7000")
		t.Setenv("RELAY_AUDIT_ENABLED", "true")
		t.Setenv("RELAY_AUDIT_DRIVER", "sqlite3")
		t.Setenv("RELAY_LOG_LEVEL", "debug")

		cfg := Default()
		if err := ApplyEnvOverrides(cfg); err != nil {
			t.Fatalf("ApplyEnvOverrides() error = %v", err)
		}
		if cfg.Server.ListenAddress != "127.0.0.1:7000" {
			t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
		}
		if !cfg.Audit.Enabled || cfg.Audit.Driver != "sqlite3" {
			t.Errorf("Audit = %+v", cfg.Audit)
		}
		if cfg.Telemetry.Logging.Level != "debug" {
			t.Errorf("Level = %q", cfg.Telemetry.Logging.Level)
		}
	})

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric port", "PORT", "abc"},
		{"port out of range", "PORT", "70000"},
		{"non-numeric timeout", "AI_REQUEST_TIMEOUT", "soon"},
		{"zero timeout", "AI_REQUEST_TIMEOUT", "0"},
		{"bad boolean", "RELAY_METRICS_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			err := ApplyEnvOverrides(Default())
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if verr.Errors[0].Field != tt.key {
				t.Errorf("Field = %q, want %q", verr.Errors[0].Field, tt.key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty listen address", func(c *Config) { c.Server.ListenAddress = "" }, "server.listen_address"},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }, "server.max_body_bytes"},
		{"relative upstream url", func(c *Config) { c.Upstream.BaseURL = "localhost:8000" }, "upstream.base_url"},
		{"path without slash", func(c *Config) { c.Upstream.Path = "generate" }, "upstream.path"},
		{"negative timeout", func(c *Config) { c.Upstream.Timeout = -time.Second }, "upstream.timeout"},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "loud" }, "telemetry.logging.level"},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"bad redact pattern", func(c *Config) {
			c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "x", Pattern: "("}}
		}, "telemetry.logging.redact_patterns[0].pattern"},
		{"unsorted buckets", func(c *Config) { c.Telemetry.Metrics.UpstreamDurationBuckets = []float64{1, 0.5} }, "telemetry.metrics.upstream_duration_buckets"},
		{"bad audit driver", func(c *Config) { c.Audit.Enabled = true; c.Audit.Driver = "postgres" }, "audit.driver"},
		{"bad audit backend", func(c *Config) { c.Audit.Enabled = true; c.Audit.Backend = "s3" }, "audit.backend"},
		{"bad prune schedule", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.RetentionDays = 7
			c.Audit.PruneSchedule = "every day"
		}, "audit.prune_schedule"},
		{"wildcard subject", func(c *Config) { c.Events.Enabled = true; c.Events.Subject = "relay.>" }, "events.subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.field, verr)
			}
		})
	}

	t.Run("collects every error", func(t *testing.T) {
		cfg := Default()
		cfg.Server.ListenAddress = ""
		cfg.Upstream.Timeout = 0
		err := Validate(cfg)
		if err == nil || !strings.Contains(err.Error(), "2 errors") {
			t.Errorf("Validate() = %v, want two errors", err)
		}
	})

	t.Run("disabled sinks are not validated", func(t *testing.T) {
		cfg := Default()
		cfg.Audit.Driver = "postgres"
		cfg.Events.Subject = ""
		if err := Validate(cfg); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})
}

func TestEffectiveWriteTimeout(t *testing.T) {
	tests := []struct {
		name     string
		write    time.Duration
		upstream time.Duration
		want     time.Duration
	}{
		{"defaults keep configured value", 90 * time.Second, 60 * time.Second, 90 * time.Second},
		{"raised above a longer upstream budget", 90 * time.Second, 120 * time.Second, 125 * time.Second},
		{"raised when equal to the budget", time.Second, time.Second, time.Second + WriteTimeoutMargin},
		{"zero disables the timeout", 0, 120 * time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Server.WriteTimeout = tt.write
			cfg.Upstream.Timeout = tt.upstream
			if got := cfg.EffectiveWriteTimeout(); got != tt.want {
				t.Errorf("EffectiveWriteTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfigRaisesWriteTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_REQUEST_TIMEOUT", "120000")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Upstream.Timeout != 2*time.Minute {
		t.Fatalf("Timeout = %v, want 2m", cfg.Upstream.Timeout)
	}
	if cfg.Server.WriteTimeout <= cfg.Upstream.Timeout {
		t.Errorf("WriteTimeout = %v, must exceed the upstream timeout %v", cfg.Server.WriteTimeout, cfg.Upstream.Timeout)
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("sets unset variables", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, ".env", `
# comment
RELAY_TEST_PLAIN=one
export RELAY_TEST_EXPORTED="two words"
RELAY_TEST_SINGLE='three'
RELAY_TEST_PRESET=from-file
`)
		t.Setenv("RELAY_TEST_PRESET", "from-env")
		t.Cleanup(func() {
			os.Unsetenv("RELAY_TEST_PLAIN")
			os.Unsetenv("RELAY_TEST_EXPORTED")
			os.Unsetenv("RELAY_TEST_SINGLE")
		})

		if err := LoadEnvFile(path); err != nil {
			t.Fatalf("LoadEnvFile() error = %v", err)
		}

		want := map[string]string{
			"RELAY_TEST_PLAIN":    "one",
			"RELAY_TEST_EXPORTED": "two words",
			"RELAY_TEST_SINGLE":   "three",
			"RELAY_TEST_PRESET":   "from-env",
		}
		for k, v := range want {
			if got := os.Getenv(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
	})

	t.Run("inline comments escapes and multiline values", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), ".env", `AI_REQUEST_TIMEOUT=30000 # thirty seconds
RELAY_TEST_ESCAPED="line one\nline two"
RELAY_TEST_MULTILINE="first
second"
`)
		clearEnv(t)
		os.Unsetenv("AI_REQUEST_TIMEOUT")
		t.Cleanup(func() {
			os.Unsetenv("RELAY_TEST_ESCAPED")
			os.Unsetenv("RELAY_TEST_MULTILINE")
		})

		if err := LoadEnvFile(path); err != nil {
			t.Fatalf("LoadEnvFile() error = %v", err)
		}

		want := map[string]string{
			"AI_REQUEST_TIMEOUT":   "30000",
			"RELAY_TEST_ESCAPED":   "line one\nline two",
			"RELAY_TEST_MULTILINE": "first\nsecond",
		}
		for k, v := range want {
			if got := os.Getenv(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Upstream.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s", cfg.Upstream.Timeout)
		}
	})

	t.Run("missing file is ignored", func(t *testing.T) {
		if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("LoadEnvFile() error = %v", err)
		}
	})

	t.Run("malformed line", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), ".env", "BAD-KEY=value\n")
		if err := LoadEnvFile(path); err == nil {
			t.Error("expected error for malformed line")
		}
	})
}

func TestWatcher(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "relay.yaml", "telemetry:\n  logging:\n    level: info\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(c *Config) { reloaded <- c })
	}()

	// Give the watcher a moment to start its loop.
	time.Sleep(50 * time.Millisecond)

	// Invalid content is skipped.
	writeFile(t, dir, "relay.yaml", "telemetry:\n  logging:\n    level: loud\n")
	select {
	case c := <-reloaded:
		t.Fatalf("invalid config delivered: %+v", c.Telemetry.Logging)
	case <-time.After(200 * time.Millisecond):
	}

	writeFile(t, dir, "relay.yaml", "telemetry:\n  logging:\n    level: debug\n")
	select {
	case c := <-reloaded:
		if c.Telemetry.Logging.Level != "debug" {
			t.Errorf("Level = %q, want debug", c.Telemetry.Logging.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	// Unrelated files in the same directory do not trigger reloads.
	writeFile(t, dir, "other.yaml", "x: 1\n")
	select {
	case <-reloaded:
		t.Error("reload triggered by unrelated file")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}
