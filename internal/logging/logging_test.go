// v1
// internal/logging/logging_test.go
package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTeeWritesToEveryHandler(t *testing.T) {
	var a, b bytes.Buffer
	lg := slog.New(NewTee(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)).With("component", "test")
	lg.Info("session_started", "zone", "zone-A")
	lg.Warn("breaker_opened")
	if !strings.Contains(a.String(), "session_started") || !strings.Contains(a.String(), "component=test") {
		t.Fatalf("info handler missing record: %q", a.String())
	}
	if strings.Contains(b.String(), "session_started") || !strings.Contains(b.String(), "breaker_opened") {
		t.Fatalf("warn handler should only hold warn records: %q", b.String())
	}
}

func TestNewCreatesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "climate.log")
	lg, err := New(path, "debug")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Debug("evaluation_done", "zone", "zone-A")
	if err := lg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "evaluation_done") {
		t.Fatalf("log file missing record: %q", raw)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("WARN") != slog.LevelWarn || ParseLevel("") != slog.LevelInfo {
		t.Fatalf("unexpected level mapping")
	}
}
