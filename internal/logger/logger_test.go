package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewLoggerProfiles(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		t.Run(env, func(t *testing.T) {
			l, err := NewLogger(env, "")
			if err != nil {
				t.Fatalf("NewLogger(%q) unexpected error: %v", env, err)
			}
			if l == nil {
				t.Fatalf("NewLogger(%q) = nil", env)
			}
		})
	}
}

func TestNewLoggerUnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging", ""); err == nil {
		t.Fatal("NewLogger() expected error for unknown environment")
	}
}

func TestNewLoggerLevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "debug")
	if err != nil {
		t.Fatalf("NewLogger() unexpected error: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Error("debug override not applied to prod profile")
	}

	if _, err := NewLogger("prod", "verbose"); err == nil {
		t.Fatal("NewLogger() expected error for bogus level")
	}
}

func TestFromContext(t *testing.T) {
	base := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), base)
	if got := FromContext(ctx); got != base {
		t.Error("FromContext() did not return the attached logger")
	}
	if got := FromContext(context.Background()); got == nil {
		t.Error("FromContext() on a bare context must fall back to a usable logger")
	}
}
