package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu       sync.Mutex
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("test error")).Build()
	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuilderFields(t *testing.T) {
	t.Parallel()

	ee := Newf("thread %s not found", "thr_1").
		Component("chatkit").
		Category(CategoryNotFound).
		Context("thread_id", "thr_1").
		Build()

	assert.Equal(t, "thread thr_1 not found", ee.Error())
	assert.Equal(t, "chatkit", ee.Component)
	assert.True(t, IsNotFound(ee))
	assert.False(t, IsValidation(ee))
	assert.Equal(t, map[string]any{"thread_id": "thr_1"}, ee.GetContext())
}

func TestCategoryInheritedThroughWrap(t *testing.T) {
	t.Parallel()

	inner := ValidationError("bad input")
	outer := New(fmt.Errorf("lookup failed: %w", inner)).Component("destinations").Build()

	assert.Equal(t, CategoryValidation, outer.Category)
	assert.True(t, IsValidation(outer))
	assert.ErrorIs(t, outer, inner)
}

func TestIsMatchesCategory(t *testing.T) {
	t.Parallel()

	a := New(NewStd("a")).Category(CategoryDatabase).Build()
	b := New(NewStd("b")).Category(CategoryDatabase).Build()
	c := New(NewStd("c")).Category(CategoryNetwork).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

//nolint:paralleltest // mutates the global telemetry reporter
func TestTelemetryReporting(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	New(NewStd("db down")).Category(CategoryDatabase).Build()
	ValidationError("ignored")
	New(NewStd("missing")).Category(CategoryNotFound).Build()

	require.Len(t, reporter.reported, 1)
	assert.Equal(t, CategoryDatabase, reporter.reported[0].Category)
	assert.True(t, reporter.reported[0].IsReported())
}

func TestBasicURLScrub(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		want      string
		forbidden []string
	}{
		{
			name:  "query string",
			input: "Error at https://api.example.com/v1?api_key=secret123&token=abc",
			want:  "Error at https://api.example.com/v1?[REDACTED]",
		},
		{
			name:      "api key outside url",
			input:     "config error: api_key=secret123 is invalid",
			forbidden: []string{"secret123"},
		},
		{
			name:      "google key",
			input:     "request with AIzaSyA1234567890abcdefghijklmnop failed",
			forbidden: []string{"AIzaSyA1234567890abcdefghijklmnop"},
		},
		{
			name:      "thread id",
			input:     "load failed thread_id=thr_abc",
			forbidden: []string{"thr_abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := basicURLScrub(tt.input)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
			}
			for _, f := range tt.forbidden {
				assert.NotContains(t, got, f)
			}
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("boom")).
		Component("planner").
		Category(CategoryLLM).
		Timing("generate_content", 0).
		Build()

	assert.Equal(t, "Planner LLM Request Error Generate Content", generateErrorTitle(ee))
}

func TestInitSentryWithoutDSN(t *testing.T) {
	t.Parallel()

	reporter, err := InitSentry(SentryOptions{})
	require.NoError(t, err)
	assert.False(t, reporter.IsEnabled())
}
