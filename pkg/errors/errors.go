// Package errors provides custom error types for the subrec system.
// These errors enable programmatic error checking and carry the record
// identifiers needed for data-quality follow-up.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the subrec system
var (
	// ErrParse indicates a value could not be parsed into its typed form
	// outside the sanctioned repair rules
	ErrParse = errors.New("parse failed")

	// ErrInvariant indicates a pipeline invariant was violated
	ErrInvariant = errors.New("invariant violated")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// ParseError represents a failure to parse a raw field into its typed form.
// Any parse failure not covered by a named repair rule is fatal for the batch.
type ParseError struct {
	Format  string // "date", "timestamp", "amount", "csv"
	Source  string // file path or feed name, if known
	Row     int    // 1-based row number, 0 if unknown
	Value   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" && e.Row > 0 {
		return fmt.Sprintf("%s parse error at %s row %d (%q): %s", e.Format, e.Source, e.Row, e.Value, e.Message)
	}
	if e.Value != "" {
		return fmt.Sprintf("%s parse error (%q): %s", e.Format, e.Value, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NewParseError creates a new ParseError
func NewParseError(format, value, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// InvariantError represents a violated pipeline invariant, such as a null
// timestamp surviving imputation or a duplicate subscriber surviving
// latest-record selection. It carries the offending record identifiers.
type InvariantError struct {
	Stage   string
	Message string
	IDs     []string
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("invariant violated in %s: %s (records: %s)", e.Stage, e.Message, strings.Join(e.IDs, ", "))
	}
	return fmt.Sprintf("invariant violated in %s: %s", e.Stage, e.Message)
}

// Is implements errors.Is support
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// NewInvariantError creates a new InvariantError
func NewInvariantError(stage, message string, ids ...string) *InvariantError {
	return &InvariantError{Stage: stage, Message: message, IDs: ids}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// SinkError represents a failure while persisting a finalized dataset
// to one of the external sinks.
type SinkError struct {
	Sink    string // "sqlite", "parquet"
	Target  string // table name or file path
	Records int
	Err     error
}

// Error implements the error interface
func (e *SinkError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("sink error writing %d records to %s %s: %v", e.Records, e.Sink, e.Target, e.Err)
	}
	return fmt.Sprintf("sink error writing %d records to %s: %v", e.Records, e.Sink, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SinkError) Unwrap() error {
	return e.Err
}

// NewSinkError creates a new SinkError
func NewSinkError(sink, target string, records int, err error) *SinkError {
	return &SinkError{
		Sink:    sink,
		Target:  target,
		Records: records,
		Err:     err,
	}
}

// Helper functions for error checking

// IsParse checks if an error is a parse error
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsInvariant checks if an error is an invariant violation
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapParse wraps an error as a ParseError
func WrapParse(format, value string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, value, err.Error(), err)
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapSink wraps an error as a SinkError
func WrapSink(sink, target string, records int, err error) error {
	if err == nil {
		return nil
	}
	return NewSinkError(sink, target, records, err)
}
