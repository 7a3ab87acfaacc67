package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Errorf("%s: %v", env, err)
			continue
		}
		_ = l.Sync()
	}
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatal(err)
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

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("debug"); err != nil || lvl != zapcore.DebugLevel {
		t.Errorf("ParseLevel(debug) = %v, %v", lvl, err)
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext must never return nil")
	}

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))
	FromContext(ctx).Info("hello")

	if logs.FilterMessage("hello").Len() != 1 {
		t.Error("expected the stored logger to be used")
	}
}

func TestContextFields(t *testing.T) {
	AddFields(context.Background(), zap.String("ignored", "x"))

	ctx, collected := ContextWithFields(context.Background())
	AddFields(ctx, zap.String("collection", "books"))
	AddFields(ctx, zap.Int("shard_count", 2))

	got := collected()
	if len(got) != 2 || got[0].Key != "collection" || got[1].Key != "shard_count" {
		t.Errorf("collected fields = %v", got)
	}
}
