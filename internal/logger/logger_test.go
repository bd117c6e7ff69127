package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "test"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", env, err)
		}
		if l == nil {
			t.Fatalf("NewLogger(%q) returned nil", env)
		}
	}

	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info must be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn must be enabled")
	}

	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestContext_RoundTrip(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext must never return nil")
	}

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))
	ctx = With(ctx, zap.String("request_id", "r-1"))

	FromContext(ctx).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "r-1" {
		t.Errorf("request_id = %v, want r-1", got)
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup(context.Background()); ok {
		t.Error("Lookup on an empty context reported a logger")
	}
	if _, ok := Lookup(ContextWithLogger(context.Background(), nil)); ok {
		t.Error("Lookup reported a nil logger")
	}
	l := zap.NewNop()
	if got, ok := Lookup(ContextWithLogger(context.Background(), l)); !ok || got != l {
		t.Errorf("Lookup = %v, %v", got, ok)
	}
}
