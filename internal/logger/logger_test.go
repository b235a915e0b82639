package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   LogLevel
		logFunc func(l Logger)
		want    bool
	}{
		{"debug at info", LogLevelInfo, func(l Logger) { l.Debug("msg") }, false},
		{"info at info", LogLevelInfo, func(l Logger) { l.Info("msg") }, true},
		{"warn at error", LogLevelError, func(l Logger) { l.Warn("msg") }, false},
		{"trace at trace", LogLevelTrace, func(l Logger) { l.Trace("msg") }, true},
		{"trace at debug", LogLevelDebug, func(l Logger) { l.Trace("msg") }, false},
		{"explicit error", LogLevelWarn, func(l Logger) { l.Log(LogLevelError, "msg") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			tt.logFunc(NewSlogLogger(buf, tt.level, time.UTC))
			assert.Equal(t, tt.want, buf.Len() > 0)
		})
	}
}

func TestModuleScopingAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelDebug, time.UTC).
		Module("api").
		Module("chatkit").
		With(String("thread_id", "thr_1"))

	log.Info("item added",
		Int("items", 3),
		Bool("streaming", true),
		Float64("score", 1.23456),
		Duration("elapsed", 1500*time.Millisecond),
		Error(errors.New("boom")))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "item added", entry["msg"])
	assert.Equal(t, "api.chatkit", entry["module"])
	assert.Equal(t, "thr_1", entry["thread_id"])
	assert.InDelta(t, 3, entry["items"], 0)
	assert.Equal(t, true, entry["streaming"])
	assert.InDelta(t, 1.235, entry["score"], 0.0001)
	assert.Equal(t, "1.5s", entry["elapsed"])
	assert.Equal(t, "boom", entry["error"])
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	NewSlogLogger(buf, LogLevelTrace, time.UTC).Trace("deep")
	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "TRACE", entries[0]["level"])
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.WithContext(WithTraceID(context.Background(), "abc-123")).Info("with trace")
	log.WithContext(context.Background()).Info("without trace")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc-123", entries[0]["trace_id"])
	assert.NotContains(t, entries[1], "trace_id")
}

func TestWithDoesNotMutateParent(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	parent := NewSlogLogger(buf, LogLevelInfo, time.UTC).With(String("a", "1"))
	_ = parent.With(String("b", "2"))
	parent.Info("parent")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0], "b")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "merak.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput: &FileOutput{
			Enabled: true,
			Path:    path,
			MaxSize: 1,
		},
	})
	require.NoError(t, err)

	cl.Module("destinations").Debug("lookup", String("season", "spring"))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, entries, 1)
	assert.Equal(t, "destinations", entries[0]["module"])
	assert.Equal(t, "spring", entries[0]["season"])
}

func TestCentralLoggerModuleLevels(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "merak.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "warn",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "trace"},
		ModuleLevels: map[string]string{"session": "debug"},
	})
	require.NoError(t, err)

	cl.Module("session").Debug("kept")
	cl.Module("api").Info("dropped")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "dropped")
}

func TestNewCentralLoggerErrors(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)

	_, err = NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	for _, lvl := range []string{"trace", "debug", "info", "warn", "error"} {
		assert.True(t, ValidLevel(lvl), lvl)
	}
	assert.False(t, ValidLevel("verbose"))
	assert.False(t, ValidLevel(""))
}

func TestGormAdapterSlowQuery(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	adapter := NewGormLoggerAdapter(NewSlogLogger(buf, LogLevelInfo, time.UTC), time.Millisecond)
	adapter.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "slow query", entries[0]["msg"])
	assert.Equal(t, "SELECT 1", entries[0]["sql"])
}

// Not parallel: swaps the process stdio and the global logger.
func TestGlobalFallbackWritesToStderr(t *testing.T) {
	globalLoggerMu.Lock()
	saved := globalLogger
	globalLogger = nil
	globalLoggerMu.Unlock()

	errR, errW, err := os.Pipe()
	require.NoError(t, err)
	outR, outW, err := os.Pipe()
	require.NoError(t, err)

	origStderr, origStdout := os.Stderr, os.Stdout
	os.Stderr, os.Stdout = errW, outW
	t.Cleanup(func() {
		os.Stderr, os.Stdout = origStderr, origStdout
		SetGlobal(saved)
	})

	Global().Module("secrets").Warn("secret file is readable by group or others")

	os.Stderr, os.Stdout = origStderr, origStdout
	require.NoError(t, errW.Close())
	require.NoError(t, outW.Close())

	stderr, err := io.ReadAll(errR)
	require.NoError(t, err)
	stdout, err := io.ReadAll(outR)
	require.NoError(t, err)

	assert.Contains(t, string(stderr), "secret file is readable by group or others")
	assert.Empty(t, stdout)
}
