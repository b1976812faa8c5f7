package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLogger_WritesToFile(t *testing.T) {
	dir := t.TempDir()

	log, err := NewLogger(dir, "barbarian", LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	log.Info("process started", "pid", 1234)
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "barbarian.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log entry is not valid JSON: %v", err)
	}
	if entry["msg"] != "process started" {
		t.Errorf("msg = %v, want %q", entry["msg"], "process started")
	}
	if entry["pid"] != float64(1234) {
		t.Errorf("pid = %v, want 1234", entry["pid"])
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	log, err := NewLogger(dir, "rogue", LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	log.Debug("ignored")
	log.Info("also ignored")
	log.Warn("kept")
	log.Error("kept too")
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "rogue.log"))
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 log lines at WARN level, got %d", lines)
	}
}

func TestWithRole_AddsAttribute(t *testing.T) {
	dir := t.TempDir()

	base, err := NewLogger(dir, "wizard", LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	child := base.WithRole("wizard").WithPID(42)
	child.Info("attached")
	if err := base.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "wizard.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log entry is not valid JSON: %v", err)
	}
	if entry["role"] != "wizard" {
		t.Errorf("role = %v, want %q", entry["role"], "wizard")
	}
	if entry["pid"] != float64(42) {
		t.Errorf("pid = %v, want 42", entry["pid"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNopLogger_DoesNotPanic(t *testing.T) {
	log := NopLogger()
	log.Debug("a")
	log.Info("b")
	log.Warn("c")
	log.Error("d")
	if err := log.Close(); err != nil {
		t.Errorf("Close on NopLogger should be a no-op, got %v", err)
	}
}
