package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the configuration file consulted when no path is
// given explicitly. It is allowed to be absent.
const DefaultConfigPath = "config.yaml"

// LoadConfig builds the effective configuration.
//
// The loading sequence is:
//  1. Start from Default()
//  2. Overlay the YAML file at path (if any)
//  3. Apply defaults to fields the file zeroed
//  4. Apply environment variable overrides
//  5. Raise the write timeout above the upstream timeout
//  6. Validate the final configuration
//
// An empty path skips the file. A missing file is only an error when path
// names something other than DefaultConfigPath.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && path == DefaultConfigPath:
			// no file, defaults plus environment
		case err != nil:
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
			}
		}
	}

	ApplyDefaults(cfg)

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.Server.WriteTimeout = cfg.EffectiveWriteTimeout()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to cfg.
//
// The service variables PORT, FASTAPI_URL and AI_REQUEST_TIMEOUT (in
// milliseconds) are honored first; RELAY_* variables are applied afterwards
// and therefore win when both address the same field. Values that cannot be
// parsed are collected into a ValidationError.
func ApplyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	if val := os.Getenv("PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, FieldError{Field: "PORT", Message: fmt.Sprintf("invalid port %q", val)})
		} else {
			cfg.Server.ListenAddress = ":" + strconv.Itoa(port)
		}
	}
	if val := os.Getenv("FASTAPI_URL"); val != "" {
		cfg.Upstream.BaseURL = val
	}
	if val := os.Getenv("AI_REQUEST_TIMEOUT"); val != "" {
		ms, err := strconv.ParseInt(val, 10, 64)
		if err != nil || ms <= 0 {
			errs = append(errs, FieldError{
				Field:   "AI_REQUEST_TIMEOUT",
				Message: fmt.Sprintf("invalid timeout %q (want positive milliseconds)", val),
			})
		} else {
			cfg.Upstream.Timeout = time.Duration(ms) * time.Millisecond
		}
	}

	// Server overrides
	if val := os.Getenv("RELAY_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}

	// Upstream overrides
	if val := os.Getenv("RELAY_UPSTREAM_PATH"); val != "" {
		cfg.Upstream.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("RELAY_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("RELAY_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	errs = envBool(errs, "RELAY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)

	// Audit overrides
	errs = envBool(errs, "RELAY_AUDIT_ENABLED", &cfg.Audit.Enabled)
	if val := os.Getenv("RELAY_AUDIT_DRIVER"); val != "" {
		cfg.Audit.Driver = val
	}
	if val := os.Getenv("RELAY_AUDIT_PATH"); val != "" {
		cfg.Audit.Path = val
	}

	// Events overrides
	errs = envBool(errs, "RELAY_EVENTS_ENABLED", &cfg.Events.Enabled)
	if val := os.Getenv("RELAY_EVENTS_NATS_URL"); val != "" {
		cfg.Events.NatsURL = val
	}
	if val := os.Getenv("RELAY_EVENTS_SUBJECT"); val != "" {
		cfg.Events.Subject = val
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func envBool(errs []FieldError, key string, dst *bool) []FieldError {
	val := os.Getenv(key)
	if val == "" {
		return errs
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return append(errs, FieldError{Field: key, Message: fmt.Sprintf("invalid boolean %q", val)})
	}
	*dst = b
	return errs
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}
	return data, nil
}
