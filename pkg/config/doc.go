// Package config provides configuration management for the relay gateway.
//
// Configuration is assembled once at startup and injected into the
// components that need it. Nothing on the request path reads configuration
// from a global.
//
// # Configuration Precedence
//
// Values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from the YAML file, if present
//  3. PORT, FASTAPI_URL and AI_REQUEST_TIMEOUT
//  4. RELAY_* environment variables
//  5. Validation (fails fast if invalid)
//
// A .env file can be loaded into the process environment beforehand with
// LoadEnvFile; variables already set in the environment win.
//
// # Example Configuration
//
//	server:
//	  listen_address: ":3000"
//	  max_body_bytes: 1048576
//
//	upstream:
//	  base_url: "http://localhost:8000"
//	  path: "/generate_ai_response"
//	  timeout: 60s
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//	  metrics:
//	    enabled: true
//
//	audit:
//	  enabled: true
//	  driver: "sqlite"
//	  path: "data/audit.db"
//	  retention_days: 30
//
//	events:
//	  enabled: false
//	  nats_url: "nats://127.0.0.1:4222"
//
// # Hot Reload
//
// Watcher observes the configuration file and delivers each successfully
// reloaded Config to a callback. The relay uses it to adjust the log level
// at runtime; all other settings take effect on restart.
package config
