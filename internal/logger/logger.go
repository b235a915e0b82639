// Package logger provides a structured, module-aware logging system built on log/slog.
//
// Components receive a Logger scoped to their module:
//
//	log := logger.Global().Module("chatkit")
//	log.Info("thread created",
//	    logger.String("thread_id", thread.ID),
//	    logger.Int("items", 1))
//
// Console output is human-readable text; file output is JSON rotated by
// lumberjack. Module loggers nest ("api.chatkit") and can carry fields
// accumulated with With.
package logger

import (
	"context"
	"time"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field represents a structured log field
type Field struct {
	Key   string
	Value any
}

// Logger is the centralized logging interface for dependency injection
type Logger interface {
	// Module returns a logger scoped to a specific module
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger

	// Log with explicit level
	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates a 64-bit integer field
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float field. Values are rounded to three decimals on output.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field. The key is always "error".
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field rendered as a human-readable string
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Any creates a field with an arbitrary value.
// Prefer the typed constructors for simple values.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}
