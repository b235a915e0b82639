package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	_ "time/tzdata"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// traceLevelValue is slog.Level for TRACE level (below Debug which is -4)
	traceLevelValue = slog.Level(-8)

	// floatPrecisionRatio rounds floats to 3 decimal places in log output
	floatPrecisionRatio = 1000.0

	moduleKey  = "module"
	traceIDKey = "trace_id"
	errorKey   = "error"
)

var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal sets the global CentralLogger instance.
// Called once during startup after configuration is loaded.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the global CentralLogger instance.
// Without SetGlobal it returns a console-only fallback logger.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger != nil {
		return globalLogger
	}

	globalLogger = &CentralLogger{
		config: &LoggingConfig{
			DefaultLevel: DefaultLogLevel,
			Console:      &ConsoleOutput{Enabled: true, Level: DefaultLogLevel},
		},
		timezone:     time.Local,
		moduleLevels: make(map[string]slog.Level),
		baseHandler:  newTextHandler(os.Stderr, slog.LevelInfo),
	}
	return globalLogger
}

type loggerContextKey struct{ name string }

// TraceIDKey is the context key for trace IDs. Use WithTraceID to set values.
var TraceIDKey = loggerContextKey{"trace_id"}

// WithTraceID returns a new context with the trace ID set
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// CentralLogger manages module-aware logging
type CentralLogger struct {
	config       *LoggingConfig
	timezone     *time.Location
	baseHandler  slog.Handler
	fileWriter   *lumberjack.Logger
	moduleLevels map[string]slog.Level
	mu           sync.RWMutex
}

// NewCentralLogger creates a centralized logger from configuration
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	var tz *time.Location
	switch cfg.Timezone {
	case "", "Local":
		tz = time.Local
	default:
		var err error
		tz, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
	}

	cl := &CentralLogger{
		config:       cfg,
		timezone:     tz,
		moduleLevels: make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, levelStr := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(levelStr)
	}

	if err := cl.createBaseHandler(os.Stderr); err != nil {
		return nil, fmt.Errorf("failed to create base handler: %w", err)
	}
	return cl, nil
}

// createBaseHandler builds the console text handler and the rotated JSON file handler
func (cl *CentralLogger) createBaseHandler(console io.Writer) error {
	var handlers []slog.Handler

	if cl.config.Console != nil && cl.config.Console.Enabled {
		handlers = append(handlers, newTextHandler(console, parseLogLevel(cl.config.Console.Level)))
	}

	if fo := cl.config.FileOutput; fo != nil && fo.Enabled {
		if err := ensureFileDirectory(fo.Path); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		cl.fileWriter = &lumberjack.Logger{
			Filename:   fo.Path,
			MaxSize:    fo.MaxSize,
			MaxAge:     fo.MaxAge,
			MaxBackups: fo.MaxRotatedFiles,
			Compress:   fo.Compress,
		}
		handlers = append(handlers, newJSONHandler(cl.fileWriter, parseLogLevel(fo.Level), cl.timezone))
	}

	switch len(handlers) {
	case 0:
		cl.baseHandler = newTextHandler(console, parseLogLevel(cl.config.DefaultLevel))
	case 1:
		cl.baseHandler = handlers[0]
	default:
		cl.baseHandler = newMultiWriterHandler(handlers...)
	}
	return nil
}

// Module returns a logger scoped to a specific module
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	return &moduleLogger{
		module: name,
		logger: slog.New(cl.baseHandler),
		level:  cl.moduleLevelLocked(name),
	}
}

func (cl *CentralLogger) moduleLevelLocked(module string) slog.Level {
	if level, ok := cl.moduleLevels[module]; ok {
		return level
	}
	return parseLogLevel(cl.config.DefaultLevel)
}

// Flush is a no-op for console output; lumberjack writes through to the file
func (cl *CentralLogger) Flush() error {
	return nil
}

// Close closes the log file, if any
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.fileWriter == nil {
		return nil
	}
	err := cl.fileWriter.Close()
	cl.fileWriter = nil
	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

func ensureFileDirectory(filePath string) error {
	if filePath == "" {
		return nil
	}
	dir := filepath.Dir(filePath)
	if dir == "." || dir == filePath {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// parseLogLevel converts string level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch LogLevel(level) {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// moduleLogger implements Logger for a specific module
type moduleLogger struct {
	module string
	logger *slog.Logger
	level  slog.Level
	fields []Field
}

// Module creates a sub-module logger with its own copy of fields
func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}
	module := name
	if m.module != "" {
		module = m.module + "." + name
	}
	return &moduleLogger{
		module: module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Clone(m.fields),
	}
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.logAt(traceLevelValue, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.logAt(slog.LevelDebug, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.logAt(slog.LevelInfo, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.logAt(slog.LevelWarn, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.logAt(slog.LevelError, msg, fields) }

// Log logs a message with explicit level
func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.logAt(parseLogLevel(string(level)), msg, fields)
}

// With returns a new logger with accumulated fields
func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}
	return &moduleLogger{
		module: m.module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Concat(m.fields, fields),
	}
}

// WithContext returns a logger carrying the trace ID found in ctx
func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil {
		return nil
	}
	if ctx == nil {
		return m
	}
	traceID, _ := ctx.Value(TraceIDKey).(string)
	if traceID == "" {
		return m
	}
	return m.With(String(traceIDKey, traceID))
}

func (m *moduleLogger) Flush() error {
	return nil
}

func (m *moduleLogger) logAt(level slog.Level, msg string, fields []Field) {
	if m == nil || level < m.level {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for i := range m.fields {
		attrs = append(attrs, fieldToAttr(m.fields[i]))
	}
	for i := range fields {
		attrs = append(attrs, fieldToAttr(fields[i]))
	}
	m.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func roundFloat(val float64) float64 {
	return math.Round(val*floatPrecisionRatio) / floatPrecisionRatio
}

// fieldToAttr converts Field to slog.Attr
func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, roundFloat(v))
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		// slog.Duration renders nanoseconds in JSON
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}
