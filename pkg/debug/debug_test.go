package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// restore resets package state changed by Init.
func restore(t *testing.T) {
	t.Helper()
	origCats := categories
	origLogger := slog.Default()
	t.Cleanup(func() {
		categories = origCats
		slog.SetDefault(origLogger)
	})
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "auth", map[string]bool{"auth": true}},
		{"multiple", "auth,storage", map[string]bool{"auth": true, "storage": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " auth , storage ", map[string]bool{"auth": true, "storage": true}},
		{"uppercase normalized", "AUTH,Storage", map[string]bool{"auth": true, "storage": true}},
		{"empty segments", "auth,,storage", map[string]bool{"auth": true, "storage": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	restore(t)
	categories = parseCategories("auth,identity")

	if !Enabled("auth") {
		t.Error("auth should be enabled")
	}
	if !Enabled("identity") {
		t.Error("identity should be enabled")
	}
	if Enabled("storage") {
		t.Error("storage should not be enabled")
	}
}

func TestEnabled_All(t *testing.T) {
	restore(t)
	categories = parseCategories("all")

	if !Enabled("auth") || !Enabled("anything") {
		t.Error("every category should be enabled via 'all'")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitJSON(t *testing.T) {
	restore(t)
	t.Setenv("ECOTRADE_DEBUG", "")

	var buf bytes.Buffer
	logger := Init(&buf, Options{Level: "warn", Format: "json"})

	logger.Info("dropped")
	logger.Warn("kept", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "kept" || entry["key"] != "value" {
		t.Errorf("entry = %v", entry)
	}
}

func TestInitTextWithCategories(t *testing.T) {
	restore(t)
	t.Setenv("ECOTRADE_DEBUG", "")

	var buf bytes.Buffer
	Init(&buf, Options{Level: "error", Format: "text", Categories: "identity"})

	Log("identity", "traced", "email", "a@example.com")
	Log("storage", "silent")

	out := buf.String()
	if !strings.Contains(out, "msg=traced") || !strings.Contains(out, "debug=identity") {
		t.Errorf("missing identity debug line: %q", out)
	}
	if strings.Contains(out, "silent") {
		t.Errorf("disabled category was logged: %q", out)
	}
}

func TestInitEnvOverridesCategories(t *testing.T) {
	restore(t)
	t.Setenv("ECOTRADE_DEBUG", "storage")

	var buf bytes.Buffer
	Init(&buf, Options{Categories: "auth"})

	if !Enabled("storage") {
		t.Error("storage should be enabled from the environment")
	}
	if Enabled("auth") {
		t.Error("auth should be overridden by the environment")
	}
}
