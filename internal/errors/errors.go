// Package errors provides centralized error handling with optional telemetry integration
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryDatabase      ErrorCategory = "database"
	CategoryNetwork       ErrorCategory = "network"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryLLM           ErrorCategory = "llm-request" // model provider calls
	CategoryTool          ErrorCategory = "tool-call"   // agent tool execution
	CategoryStream        ErrorCategory = "stream"      // SSE delivery
	CategoryLimit         ErrorCategory = "limit"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is used when no component was set.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
	reported  bool
	mu        sync.RWMutex
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, otherwise defers to the wrapped error
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}
	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// MarkReported marks this error as reported to telemetry
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported returns whether this error has been reported
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error with enhanced context
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Timing adds an operation name and its duration
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	eb.Context("operation", operation)
	return eb.Context("duration_ms", duration.Milliseconds())
}

// Build creates the EnhancedError and reports it when telemetry is active.
// Validation and not-found errors are expected conditions and are never reported.
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
	if ee.Err == nil {
		ee.Err = stderrors.New("unspecified error")
	}
	if ee.Component == "" {
		ee.Component = ComponentUnknown
	}
	if ee.Category == "" {
		ee.Category = inheritCategory(eb.err)
	}

	switch ee.Category {
	case CategoryValidation, CategoryNotFound, CategoryCancellation:
	default:
		reportToTelemetry(ee)
	}
	return ee
}

// inheritCategory keeps the category of a wrapped EnhancedError
func inheritCategory(err error) ErrorCategory {
	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}
	return CategoryGeneric
}

// ValidationError creates a validation error
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// NewStd creates a new standard error (passthrough to standard library)
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// IsCategory checks if an error is an EnhancedError with the specified category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsNotFound checks if an error is an EnhancedError with CategoryNotFound.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

// IsValidation checks if an error is an EnhancedError with CategoryValidation.
func IsValidation(err error) bool {
	return IsCategory(err, CategoryValidation)
}
