package main

import (
	"bytes"
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommandExists(t *testing.T) {
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}
	if versionCmd.Short == "" {
		t.Error("versionCmd.Short should not be empty")
	}
	if versionCmd.RunE == nil {
		t.Error("versionCmd.RunE should not be nil")
	}
}

func TestCurrentVersion(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version, GitCommit, BuildDate = "0.1.0-test", "abc123", "2026-10-15"

	info := currentVersion()
	if info.Version != "0.1.0-test" || info.GitCommit != "abc123" || info.BuildDate != "2026-10-15" {
		t.Errorf("currentVersion() = %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}

	text := info.String()
	for _, want := range []string{"Relay 0.1.0-test", "Git Commit: abc123", "OS/Arch: " + runtime.GOOS} {
		if !strings.Contains(text, want) {
			t.Errorf("String() missing %q:\n%s", want, text)
		}
	}
}

func TestVersionCommandOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		check  func(t *testing.T, out string)
	}{
		{
			name:   "text",
			output: "text",
			check: func(t *testing.T, out string) {
				if !strings.HasPrefix(out, "Relay ") {
					t.Errorf("output = %q", out)
				}
			},
		},
		{
			name:   "json",
			output: "json",
			check: func(t *testing.T, out string) {
				var info map[string]string
				if err := json.Unmarshal([]byte(out), &info); err != nil {
					t.Fatalf("output is not JSON: %v\n%s", err, out)
				}
				if info["version"] != Version || info["platform"] == "" {
					t.Errorf("info = %v", info)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := versionFlags.output
			t.Cleanup(func() { versionFlags.output = orig })
			versionFlags.output = tt.output

			var buf bytes.Buffer
			versionCmd.SetOut(&buf)
			t.Cleanup(func() { versionCmd.SetOut(nil) })

			if err := versionCmd.RunE(versionCmd, nil); err != nil {
				t.Fatalf("version error = %v", err)
			}
			tt.check(t, buf.String())
		})
	}
}

func TestVersionCommandRejectsUnknownFormat(t *testing.T) {
	orig := versionFlags.output
	t.Cleanup(func() { versionFlags.output = orig })
	versionFlags.output = "xml"

	if err := versionCmd.RunE(versionCmd, nil); err == nil {
		t.Error("version accepted an unknown output format")
	}
}
