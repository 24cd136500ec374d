package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInitWriter_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWriter(&buf, "backtest", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("evaluated", "criterion", "sharpe")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "backtest" || line["criterion"] != "sharpe" {
		t.Errorf("unexpected record: %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestRunID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No run ID set
	if id := RunID(ctx); id != "" {
		t.Errorf("expected empty run id, got %q", id)
	}

	id := NewRunID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("run id is not a uuid: %v", err)
	}
	ctx = WithRunID(ctx, id)
	if got := RunID(ctx); got != id {
		t.Errorf("expected %q, got %q", id, got)
	}
	if NewRunID() == id {
		t.Error("run ids should be unique")
	}
}

func TestLogWithRun(t *testing.T) {
	ctx := context.Background()

	if attrs := LogWithRun(ctx); attrs != nil {
		t.Errorf("expected nil attrs when no run id, got %v", attrs)
	}

	ctx = WithRunID(ctx, "abc-123")
	attrs := LogWithRun(ctx)
	if len(attrs) != 1 {
		t.Fatalf("expected one attr, got %v", attrs)
	}
	if a, ok := attrs[0].(slog.Attr); !ok || a.Value.String() != "abc-123" {
		t.Errorf("unexpected attr %v", attrs[0])
	}
}
