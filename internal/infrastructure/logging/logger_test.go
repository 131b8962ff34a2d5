package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/carrier-core/internal/infrastructure/config"
)

func TestNew_Outputs(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "discard", ""} {
		logger := New(config.LoggingConfig{Level: "info", Format: "json", Output: output}, "1.0.0")
		if logger == nil {
			t.Fatalf("New(output=%q) returned nil", output)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewWithWriter_DefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "test", &buf)

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if entry["service"] != ServiceName {
		t.Errorf("service = %v, want %q", entry["service"], ServiceName)
	}
	if entry["version"] != "test" {
		t.Errorf("version = %v, want test", entry["version"])
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want 'test message'", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want value", entry["key"])
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "text"}, "test", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info entry written at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn entry missing")
	}
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Format: "json"}, "test", &buf)

	child := logger.Component("relay")
	if child == logger {
		t.Fatal("expected child logger to be different from parent")
	}
	child.Info("connected")

	if !strings.Contains(buf.String(), `"component":"relay"`) {
		t.Errorf("output missing component field: %s", buf.String())
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}
}
