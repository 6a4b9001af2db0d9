package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Validation errors - malformed entity construction (missing field, bad cardinality)
	ErrorTypeValidation ErrorType = iota
	// NotFound errors - referenced identity absent from the store
	ErrorTypeNotFound
	// Resolution errors - selection names a field or edge the resolved kind does not have
	ErrorTypeResolution
	// DepthExceeded errors - resolution recursion guard tripped
	ErrorTypeDepthExceeded
	// Configuration errors - missing or invalid configuration
	ErrorTypeConfig
	// Storage errors - backend I/O failures
	ErrorTypeStorage
	// Canceled errors - request cancelled between resolution steps
	ErrorTypeCanceled
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - can continue with degraded functionality
	SeverityLow Severity = iota
	// SeverityMedium - affects one subtree of a result
	SeverityMedium
	// SeverityHigh - fails the single operation that raised it
	SeverityHigh
	// SeverityCritical - fails the whole request, never retried automatically
	SeverityCritical
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop the whole request
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n",
		e.Severity.String(),
		e.Type.String(),
		e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		sb.WriteString("Context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}

	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}

	return sb.String()
}

// String returns the stable wire name of the type
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeResolution:
		return "RESOLUTION"
	case ErrorTypeDepthExceeded:
		return "DEPTH_EXCEEDED"
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeStorage:
		return "STORAGE"
	case ErrorTypeCanceled:
		return "CANCELED"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// ParseErrorType is the inverse of ErrorType.String
func ParseErrorType(s string) (ErrorType, bool) {
	for t := ErrorTypeValidation; t <= ErrorTypeInternal; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return ErrorTypeInternal, false
}

// DefaultSeverity returns the severity assigned to a type by the constructors
func DefaultSeverity(t ErrorType) Severity {
	switch t {
	case ErrorTypeResolution:
		return SeverityMedium
	case ErrorTypeValidation, ErrorTypeNotFound:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Convenience constructors for common error types

// ValidationError creates a validation error
func ValidationError(message string) *Error {
	return New(ErrorTypeValidation, SeverityHigh, message)
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityHigh, fmt.Sprintf(format, args...))
}

// NotFoundf creates a not-found error with formatting
func NotFoundf(format string, args ...interface{}) *Error {
	return New(ErrorTypeNotFound, SeverityHigh, fmt.Sprintf(format, args...))
}

// ResolutionErrorf creates a resolution error with formatting
func ResolutionErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeResolution, SeverityMedium, fmt.Sprintf(format, args...))
}

// DepthExceededf creates a depth-exceeded error with formatting
func DepthExceededf(format string, args ...interface{}) *Error {
	return New(ErrorTypeDepthExceeded, SeverityCritical, fmt.Sprintf(format, args...))
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// StorageError wraps a storage backend error
func StorageError(err error, message string) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityCritical, message)
}

// StorageErrorf wraps a storage backend error with formatting
func StorageErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityCritical, fmt.Sprintf(format, args...))
}

// Canceled wraps a context cancellation
func Canceled(err error) *Error {
	return Wrap(err, ErrorTypeCanceled, SeverityCritical, "request canceled")
}

// InternalErrorf creates an internal error with formatting
func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// As extracts an *Error from an error chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType reports whether err carries an *Error of the given type
func IsType(err error, errType ErrorType) bool {
	e, ok := As(err)
	return ok && e.Type == errType
}

// IsFatal checks if an error is fatal (should stop the whole request)
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	if e, ok := As(err); ok {
		return e.IsFatal()
	}

	return true
}

// GetSeverity returns the severity of an error
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}

	if e, ok := As(err); ok {
		return e.Severity
	}

	return SeverityCritical
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	if err == nil {
		return ErrorTypeInternal
	}

	if e, ok := As(err); ok {
		return e.Type
	}

	return ErrorTypeInternal
}
