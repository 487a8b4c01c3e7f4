package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_MergesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core), LevelDebug)

	logger.Info("Uploaded batch",
		WithField("count", 3),
		WithFields(map[string]interface{}{"jobId": "J1", "count": 4}),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d want=1", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["jobId"] != "J1" {
		t.Errorf("jobId=%v want=J1", ctx["jobId"])
	}
	// Later fields win on key collisions
	if ctx["count"] != int64(4) {
		t.Errorf("count=%v want=4", ctx["count"])
	}
}

func TestLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core), LevelDebug).With(WithField("component", "wizard"))

	logger.Warn("Extraction failed")

	entries := logs.FilterField(zap.String("component", "wizard")).All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d want=1", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level=%v want=warn", entries[0].Level)
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	logger := New(LevelError)
	if logger.Level() != LevelError {
		t.Fatalf("level=%v want=%v", logger.Level(), LevelError)
	}
	if logger.zl.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at error level")
	}
	if !logger.zl.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error should be enabled at error level")
	}
}
