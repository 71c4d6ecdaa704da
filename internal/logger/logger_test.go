package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	l := Setup(&buf, level)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
	if entry["service"] != serviceName {
		t.Errorf("service = %q, want %q", entry["service"], serviceName)
	}
}

func TestSetup_RespectsLevelVar(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	l := Setup(&buf, level)

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info log should be suppressed at warn level, got %s", buf.String())
	}

	level.Set(slog.LevelDebug)
	l.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug log should be emitted after lowering level, got %s", buf.String())
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	level := SetupDefault(&buf)

	if level.Level() != slog.LevelInfo {
		t.Errorf("level = %v, want %v", level.Level(), slog.LevelInfo)
	}

	slog.Info("global message")

	if !strings.Contains(buf.String(), "global message") {
		t.Errorf("expected global logger to write to buffer, got %s", buf.String())
	}
}
