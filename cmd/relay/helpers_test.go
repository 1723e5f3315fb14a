package main

import (
	"os"
	"path/filepath"
	"testing"
)

// relayEnv lists every variable the configuration loader reads.
var relayEnv = []string{
	"PORT", "FASTAPI_URL", "AI_REQUEST_TIMEOUT",
	"RELAY_LISTEN_ADDRESS", "RELAY_UPSTREAM_PATH",
	"RELAY_LOG_LEVEL", "RELAY_LOG_FORMAT", "RELAY_METRICS_ENABLED",
	"RELAY_AUDIT_ENABLED", "RELAY_AUDIT_DRIVER", "RELAY_AUDIT_PATH",
	"RELAY_EVENTS_ENABLED", "RELAY_EVENTS_NATS_URL", "RELAY_EVENTS_SUBJECT",
}

// isolateConfig points the global flags at a config file holding yaml and
// clears the environment the loader reads.
func isolateConfig(t *testing.T, yaml string) string {
	t.Helper()

	for _, key := range relayEnv {
		t.Setenv(key, "")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	origCfg, origEnv := cfgFile, envFile
	cfgFile, envFile = path, ""
	t.Cleanup(func() {
		cfgFile, envFile = origCfg, origEnv
	})
	return path
}
