package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging with redaction support
type Logger struct {
	debug   bool
	noColor bool
	sugar   *zap.SugaredLogger
}

// New creates a new logger instance writing to stderr
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger writing to w. Diagnostics never go to stdout,
// which carries exported data.
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		NameKey:          zapcore.OmitKey,
		TimeKey:          zapcore.OmitKey,
		CallerKey:        zapcore.OmitKey,
		StacktraceKey:    zapcore.OmitKey,
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      levelEncoder(noColor),
		ConsoleSeparator: " ",
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)

	return &Logger{
		debug:   debug,
		noColor: noColor,
		sugar:   zap.New(core).Sugar(),
	}
}

// levelEncoder renders levels as the short markers the CLI has always used
func levelEncoder(noColor bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		marker, color := "", ""
		switch l {
		case zapcore.DebugLevel:
			marker, color = "[DEBUG]", "36"
		case zapcore.InfoLevel:
			marker, color = "✓", "32"
		case zapcore.WarnLevel:
			marker, color = "⚠", "33"
		default:
			marker, color = "✗", "31"
		}
		if noColor {
			enc.AppendString(marker)
			return
		}
		enc.AppendString("\033[" + color + "m" + marker + "\033[0m")
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// IsDebug reports whether debug output is enabled
func (l *Logger) IsDebug() bool {
	return l.debug
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
