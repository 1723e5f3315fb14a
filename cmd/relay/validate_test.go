package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/relay/pkg/cli"
)

func TestValidateConfig(t *testing.T) {
	isolateConfig(t, `
upstream:
  base_url: http://inference:9000
telemetry:
  logging:
    level: debug
`)
	t.Setenv("PORT", "8081")
	t.Setenv("AI_REQUEST_TIMEOUT", "1500")

	var buf bytes.Buffer
	if err := validateConfig(&buf); err != nil {
		t.Fatalf("validateConfig() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# configuration valid",
		"listen_address: :8081",
		"base_url: http://inference:9000",
		"path: /generate_ai_response",
		"timeout: 1.5s",
		"level: debug",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{
			name: "bad timeout env",
			env:  map[string]string{"AI_REQUEST_TIMEOUT": "soon"},
		},
		{
			name: "bad port env",
			env:  map[string]string{"PORT": "99999"},
		},
		{
			name: "bad upstream url",
			yaml: "upstream:\n  base_url: localhost:8000\n",
		},
		{
			name: "malformed yaml",
			yaml: "server: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfig(t, tt.yaml)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := validateConfig(&bytes.Buffer{})
			if err == nil {
				t.Fatal("validateConfig() succeeded, want error")
			}
			if code := cli.ExitCode(err); code != cli.ExitConfig {
				t.Errorf("ExitCode() = %d, want %d", code, cli.ExitConfig)
			}
		})
	}
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	isolateConfig(t, "")

	// Set-but-empty counts as set for the env file loader.
	os.Unsetenv("FASTAPI_URL")

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("FASTAPI_URL=http://from-dotenv:8000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	envFile = envPath

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Upstream.BaseURL != "http://from-dotenv:8000" {
		t.Errorf("BaseURL = %q, want value from env file", cfg.Upstream.BaseURL)
	}
}
