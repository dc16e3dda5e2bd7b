// Package errors provides custom error types for better error handling throughout the application.
// Errors carry the layer and operation they failed in so the HTTP surface can map them to
// responses without string matching.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Layers used across the submission pipeline.
const (
	LayerAPI        = "api"
	LayerConfig     = "config"
	LayerContext    = "context"
	LayerDecode     = "decode"
	LayerFile       = "file"
	LayerValidation = "validation"
)

// LayeredError is an error annotated with the layer and operation that produced it.
type LayeredError struct {
	Layer     string            // e.g. "api", "validation"
	Operation string            // e.g. "create_branch"
	Message   string            // human readable description
	Cause     error             // underlying error, may be nil
	Context   map[string]string // extra key/value details
}

// NewLayeredError creates a LayeredError.
func NewLayeredError(layer, operation, message string, cause error) *LayeredError {
	return &LayeredError{
		Layer:     layer,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// Error implements the error interface.
func (e *LayeredError) Error() string {
	prefix := fmt.Sprintf("[%s:%s] %s", e.Layer, e.Operation, e.Message)
	if e.Cause != nil {
		return prefix + ": " + e.Cause.Error()
	}
	return prefix
}

// Unwrap returns the underlying cause.
func (e *LayeredError) Unwrap() error {
	return e.Cause
}

// WithContext adds a key/value detail and returns the same error for chaining.
func (e *LayeredError) WithContext(key, value string) *LayeredError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// APIError reports a failure talking to the Git hosting service.
func APIError(operation, message string, cause error) error {
	return NewLayeredError(LayerAPI, operation, message, cause)
}

// ValidationError reports invalid input.
func ValidationError(operation, message string) error {
	return NewLayeredError(LayerValidation, operation, message, nil)
}

// FileError reports a failure reading or writing a file.
func FileError(operation, message string, cause error) error {
	return NewLayeredError(LayerFile, operation, message, cause)
}

// ConfigError reports missing or malformed configuration.
func ConfigError(operation, message string, cause error) error {
	return NewLayeredError(LayerConfig, operation, message, cause)
}

// DecodeError reports a payload that could not be parsed.
func DecodeError(operation, message string, cause error) error {
	return NewLayeredError(LayerDecode, operation, message, cause)
}

// IsLayeredError reports whether err is a *LayeredError and returns it.
func IsLayeredError(err error) (*LayeredError, bool) {
	if err == nil {
		return nil, false
	}
	layered, ok := err.(*LayeredError)
	return layered, ok
}

// AsLayeredError returns the outermost LayeredError in err's chain, or nil.
func AsLayeredError(err error) *LayeredError {
	var layered *LayeredError
	if stderrors.As(err, &layered) {
		return layered
	}
	return nil
}

// IsLayer reports whether any LayeredError in err's chain belongs to layer.
func IsLayer(err error, layer string) bool {
	for err != nil {
		if layered, ok := err.(*LayeredError); ok && layered.Layer == layer {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsOperation reports whether any LayeredError in err's chain has the given operation.
func IsOperation(err error, operation string) bool {
	for err != nil {
		if layered, ok := err.(*LayeredError); ok && layered.Operation == operation {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// WithContextSafe adds context to err when it is a LayeredError and returns err unchanged otherwise.
func WithContextSafe(err error, key, value string) error {
	if err == nil {
		return nil
	}
	if layered, ok := err.(*LayeredError); ok {
		return layered.WithContext(key, value)
	}
	return err
}

// WrapWithOperation wraps err in a new LayeredError. A nil err stays nil.
func WrapWithOperation(err error, layer, operation, message string) error {
	if err == nil {
		return nil
	}
	return NewLayeredError(layer, operation, message, err)
}

// IsContextError reports whether err is a context cancellation or deadline error.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// ContextError wraps context errors in a LayeredError; other errors are returned as-is.
func ContextError(operation string, err error) error {
	switch {
	case stderrors.Is(err, context.Canceled):
		return NewLayeredError(LayerContext, operation, "operation was cancelled", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewLayeredError(LayerContext, operation, "operation timed out", err)
	default:
		return err
	}
}

// MissingFieldsError lists the required fields absent from a submission.
type MissingFieldsError struct {
	Fields []string
}

// NewMissingFieldsError creates a MissingFieldsError with the names sorted.
func NewMissingFieldsError(fields []string) *MissingFieldsError {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return &MissingFieldsError{Fields: sorted}
}

// Error implements the error interface.
func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// AsMissingFields returns the MissingFieldsError in err's chain, or nil.
func AsMissingFields(err error) *MissingFieldsError {
	var missing *MissingFieldsError
	if stderrors.As(err, &missing) {
		return missing
	}
	return nil
}

// PartialFailureError represents an error where some operations succeeded and some failed.
type PartialFailureError struct {
	Errors []string // Individual error messages for failed operations
}

// Error implements the error interface.
func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("some operations failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// NewPartialFailureError creates a new PartialFailureError with the given error messages.
func NewPartialFailureError(errors []string) *PartialFailureError {
	return &PartialFailureError{Errors: errors}
}

// IsPartialFailure checks if an error is a PartialFailureError.
func IsPartialFailure(err error) bool {
	_, ok := err.(*PartialFailureError)
	return ok
}

// ErrorCollector accumulates non-nil errors from a multi-part operation.
type ErrorCollector struct {
	operation string
	errs      []error
}

// NewErrorCollector creates a collector for the named operation.
func NewErrorCollector(operation string) *ErrorCollector {
	return &ErrorCollector{operation: operation}
}

// Add records err if it is non-nil.
func (c *ErrorCollector) Add(err error) {
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

// Result returns nil, the single collected error, or a PartialFailureError.
func (c *ErrorCollector) Result() error {
	switch len(c.errs) {
	case 0:
		return nil
	case 1:
		return c.errs[0]
	}
	messages := make([]string, 0, len(c.errs))
	for _, err := range c.errs {
		messages = append(messages, err.Error())
	}
	return NewPartialFailureError(messages)
}

// ErrNotFound is wrapped by collaborators when a remote resource does not exist.
var ErrNotFound = stderrors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}
