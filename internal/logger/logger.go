package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging interface used throughout the client
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	With(keysAndValues ...any) Logger
	SetLevel(level zapcore.Level)
	GetLevel() zapcore.Level
	Sync() error
}

// ZapLogger wraps a sugared zap logger to implement Logger
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// New creates a console logger at info level
func New() *ZapLogger {
	return NewWithLevel(zapcore.InfoLevel, false)
}

// NewWithLevel creates a logger at the given level. Production loggers
// emit JSON, development loggers emit console lines.
func NewWithLevel(level zapcore.Level, production bool) *ZapLogger {
	atom := zap.NewAtomicLevelAt(level)

	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = atom
	cfg.DisableStacktrace = true

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}

	return &ZapLogger{sugar: base.Sugar(), level: atom}
}

// NewNop returns a logger that discards everything
func NewNop() *ZapLogger {
	return &ZapLogger{sugar: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

// ParseLevel converts a string log level to a zap level.
// Accepts: debug, info, warn, error (case-insensitive).
// Returns info if the level is not recognized.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// With returns a child logger that always carries the given fields
func (l *ZapLogger) With(keysAndValues ...any) Logger {
	return &ZapLogger{sugar: l.sugar.With(keysAndValues...), level: l.level}
}

// SetLevel changes the logging level dynamically
func (l *ZapLogger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

// GetLevel returns the current logging level
func (l *ZapLogger) GetLevel() zapcore.Level {
	return l.level.Level()
}

func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
