package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/parleybot/parley/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewSync(t *testing.T) {
	log, closer := New(config.Logging{Level: "info", Service: "test"})
	if log == nil {
		t.Fatal("expected a logger")
	}
	closer.Close()
}

func TestNewAsync(t *testing.T) {
	log, closer := New(config.Logging{Level: "debug", Service: "test", Async: true})
	log.Info("buffered record")
	closer.Close()
}

func TestTurnIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := TurnID(ctx); got != "" {
		t.Errorf("TurnID on empty context = %q", got)
	}

	ctx = WithTurnID(ctx, "abc-123")
	if got := TurnID(ctx); got != "abc-123" {
		t.Errorf("TurnID = %q, want abc-123", got)
	}
}
