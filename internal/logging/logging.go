// Package logging provides the leveled structured logger used across the
// client. Fields are passed as maps so call sites read the same everywhere.
package logging

import (
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a Logger emits
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Fields is a set of structured key/value pairs attached to a log entry
type Fields map[string]interface{}

// WithField builds a single-entry Fields
func WithField(key string, value interface{}) Fields {
	return Fields{key: value}
}

// WithFields wraps a map as Fields
func WithFields(fields map[string]interface{}) Fields {
	return Fields(fields)
}

// Logger writes JSON log lines to stderr
type Logger struct {
	zl    *zap.Logger
	level Level
}

// New creates a Logger that emits entries at or above level
func New(level Level) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.MessageKey = "message"

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level.zapLevel()),
	)
	return &Logger{zl: zap.New(core), level: level}
}

// NewFromZap wraps an existing zap logger, mostly for tests that need an observer core
func NewFromZap(zl *zap.Logger, level Level) *Logger {
	return &Logger{zl: zl, level: level}
}

// Level returns the configured minimum level
func (l *Logger) Level() Level {
	return l.level
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields ...Fields) *Logger {
	return &Logger{zl: l.zl.With(toZap(fields)...), level: l.level}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.zl.Debug(msg, toZap(fields)...)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.zl.Info(msg, toZap(fields)...)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.zl.Warn(msg, toZap(fields)...)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.zl.Error(msg, toZap(fields)...)
}

// Sync flushes buffered entries
func (l *Logger) Sync() {
	_ = l.zl.Sync()
}

func toZap(fields []Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	merged := make(map[string]interface{})
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}

	// Stable key order keeps output diffable
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, merged[k]))
	}
	return out
}
