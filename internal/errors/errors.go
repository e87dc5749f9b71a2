package errors

import (
	"fmt"
)

// BenchError is the structured error type for idxbench. It carries the code,
// category, and severity used by the fault taxonomy: initialization faults
// abort construction, teardown faults are aggregated, usage faults panic and
// never appear as BenchError values.
type BenchError struct {
	// Code is the unique error code (e.g., "ERR_101_UNKNOWN_COMPONENT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Component, Storage, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *BenchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code, enabling
// errors.Is against sentinel BenchError values.
func (e *BenchError) Is(target error) bool {
	if t, ok := target.(*BenchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error. Returns the error for
// method chaining.
func (e *BenchError) WithDetail(key, value string) *BenchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a BenchError with the given code and message. Category and
// severity are derived from the code.
func New(code string, message string, cause error) *BenchError {
	return &BenchError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a BenchError from an existing error, keeping its message.
func Wrap(code string, err error) *BenchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// UnknownComponent creates the initialization fault for a configuration key
// naming a component that is not registered.
func UnknownComponent(key, name string) *BenchError {
	return New(ErrCodeUnknownComponent,
		fmt.Sprintf("unknown component %q for key %q", name, key), nil).
		WithDetail("key", key).
		WithDetail("component", name)
}

// ComponentConfig creates the initialization fault for a component that was
// resolved but failed to configure.
func ComponentConfig(key, name string, cause error) *BenchError {
	return New(ErrCodeComponentConfig,
		fmt.Sprintf("configure component %q for key %q: %v", name, key, cause), cause).
		WithDetail("key", key).
		WithDetail("component", name)
}

// MissingCapability creates the initialization fault for a component that
// does not satisfy the capability its slot requires.
func MissingCapability(key, name, capability string) *BenchError {
	return New(ErrCodeBadCapability,
		fmt.Sprintf("component %q for key %q does not implement %s", name, key, capability), nil).
		WithDetail("key", key).
		WithDetail("component", name)
}

// StorageError creates a directory/storage-related error.
func StorageError(message string, cause error) *BenchError {
	return New(ErrCodeDirProvision, message, cause)
}

// GetCode extracts the error code from a BenchError. Returns empty string
// if err is not a BenchError.
func GetCode(err error) string {
	if be, ok := err.(*BenchError); ok {
		return be.Code
	}
	return ""
}
