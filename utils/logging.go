// Package utils provides logging and debugging helpers shared by the promptopt packages.
package utils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Logger is the structured logger used across the module. Arguments after
// the message are alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	SetLevel(level LogLevel)
}

// DefaultLogger writes console-encoded zap output to stderr.
type DefaultLogger struct {
	logger *zap.SugaredLogger
	atom   zap.AtomicLevel
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		// OFF: nothing below fatal is emitted
		return zapcore.FatalLevel
	}
}

func NewLogger(level LogLevel) *DefaultLogger {
	atom := zap.NewAtomicLevelAt(zapLevel(level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		atom,
	)

	return &DefaultLogger{
		logger: zap.New(core).Sugar(),
		atom:   atom,
	}
}

// NewLoggerFromZap wraps an existing zap logger, e.g. one built by a host application.
func NewLoggerFromZap(z *zap.Logger, level LogLevel) *DefaultLogger {
	atom := zap.NewAtomicLevelAt(zapLevel(level))
	return &DefaultLogger{
		logger: z.WithOptions(zap.IncreaseLevel(atom)).Sugar(),
		atom:   atom,
	}
}

// SetLevel is safe to call while other goroutines log.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.atom.SetLevel(zapLevel(level))
}

func (l *DefaultLogger) Debug(msg string, keysAndValues ...any) {
	if l.atom.Enabled(zapcore.DebugLevel) {
		l.logger.Debugw(msg, keysAndValues...)
	}
}

func (l *DefaultLogger) Info(msg string, keysAndValues ...any) {
	if l.atom.Enabled(zapcore.InfoLevel) {
		l.logger.Infow(msg, keysAndValues...)
	}
}

func (l *DefaultLogger) Warn(msg string, keysAndValues ...any) {
	if l.atom.Enabled(zapcore.WarnLevel) {
		l.logger.Warnw(msg, keysAndValues...)
	}
}

func (l *DefaultLogger) Error(msg string, keysAndValues ...any) {
	if l.atom.Enabled(zapcore.ErrorLevel) {
		l.logger.Errorw(msg, keysAndValues...)
	}
}

// Sync flushes buffered log entries.
func (l *DefaultLogger) Sync() error {
	return l.logger.Sync()
}

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) SetLevel(LogLevel)    {}

func (l LogLevel) String() string {
	names := [...]string{"OFF", "ERROR", "WARN", "INFO", "DEBUG"}
	if l < 0 || int(l) >= len(names) {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return names[l]
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "OFF":
		*l = LogLevelOff
	case "ERROR":
		*l = LogLevelError
	case "WARN":
		*l = LogLevelWarn
	case "INFO":
		*l = LogLevelInfo
	case "DEBUG":
		*l = LogLevelDebug
	default:
		return fmt.Errorf("invalid log level: %s", string(text))
	}
	return nil
}
