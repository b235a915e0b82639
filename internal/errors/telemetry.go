package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// SentryOptions configures the Sentry client
type SentryOptions struct {
	DSN         string
	Release     string
	Environment string
}

// InitSentry initializes the Sentry SDK and installs a SentryReporter as the
// global reporter. An empty DSN leaves telemetry disabled.
func InitSentry(opts SentryOptions) (*SentryReporter, error) {
	if opts.DSN == "" {
		return NewSentryReporter(false), nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Release:          opts.Release,
		Environment:      opts.Environment,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			event.ServerName = ""
			event.Request = nil
			return event
		},
	})
	if err != nil {
		return nil, New(err).
			Component("telemetry").
			Category(CategoryConfiguration).
			Build()
	}
	reporter := NewSentryReporter(true)
	SetTelemetryReporter(reporter)
	return reporter, nil
}

// FlushTelemetry waits for queued Sentry events to be delivered
func FlushTelemetry(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy scrubbing
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := basicURLScrub(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	title := generateErrorTitle(ee)
	level := getErrorLevel(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, ee.Component, string(ee.Category)})

		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = basicURLScrub(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle builds "Component Category Operation" for Sentry grouping
func generateErrorTitle(ee *EnhancedError) string {
	// Casers hold state and must not be shared between goroutines
	title := cases.Title(language.English)

	var parts []string
	if ee.Component != "" && ee.Component != ComponentUnknown {
		parts = append(parts, title.String(ee.Component))
	}
	parts = append(parts, formatCategoryForTitle(ee.Category))
	if op, ok := ee.GetContext()["operation"].(string); ok && op != "" {
		parts = append(parts, title.String(strings.Join(strings.Fields(strings.ReplaceAll(op, "_", " ")), " ")))
	}
	return strings.Join(parts, " ")
}

func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryNetwork:
		return "Network Error"
	case CategoryDatabase:
		return "Database Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryConfiguration:
		return "Configuration Error"
	case CategoryLLM:
		return "LLM Request Error"
	case CategoryTool:
		return "Tool Call Error"
	case CategoryStream:
		return "Stream Error"
	default:
		return string(category)
	}
}

// getErrorLevel returns the Sentry level for a category
func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNetwork, CategoryHTTP, CategoryStream, CategoryLimit:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

type reporterHolder struct{ reporter TelemetryReporter }

var globalTelemetryReporter atomic.Pointer[reporterHolder]

// SetTelemetryReporter sets the global telemetry reporter; nil disables reporting
func SetTelemetryReporter(reporter TelemetryReporter) {
	globalTelemetryReporter.Store(&reporterHolder{reporter: reporter})
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	if h := globalTelemetryReporter.Load(); h != nil {
		return h.reporter
	}
	return nil
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

var (
	urlQueryRegex   = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	queryParamRegex = regexp.MustCompile(`[?&]([^=\s]+)=([^&\s]+)`)
	secretRegexes   = []*regexp.Regexp{
		regexp.MustCompile(`api[_-]?key[=:]\S+`),
		regexp.MustCompile(`token[=:]\S+`),
		regexp.MustCompile(`auth[=:]\S+`),
		regexp.MustCompile(`AIza[0-9A-Za-z_\-]{20,}`), // Google API keys
		regexp.MustCompile(`[0-9a-fA-F]{32,}`),
	}
	idRegexes = []*regexp.Regexp{
		regexp.MustCompile(`user[_-]?id[=:]\S+`),
		regexp.MustCompile(`thread[_-]?id[=:]\S+`),
		regexp.MustCompile(`session[_-]?id[=:]\S+`),
	}
)

// basicURLScrub removes query strings, credentials and identifiers from a message
func basicURLScrub(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = queryParamRegex.ReplaceAllString(scrubbed, "?[REDACTED]")
	for _, re := range secretRegexes {
		scrubbed = re.ReplaceAllString(scrubbed, "[API_KEY_REDACTED]")
	}
	for _, re := range idRegexes {
		scrubbed = re.ReplaceAllString(scrubbed, "[ID_REDACTED]")
	}
	return scrubbed
}
