// Package errors defines the stable error taxonomy. Every failure mode
// carries a machine tag alongside its human-readable message.
package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseIncomplete indicates a file parsed with errors; extraction kept
	// whatever completed. Recoverable.
	ParseIncomplete ErrorCode = "PARSE_INCOMPLETE"
	// ResolverUnresolved indicates an import specifier could not be resolved.
	// Attached to the import record as data, never raised as an error.
	ResolverUnresolved ErrorCode = "RESOLVER_UNRESOLVED"
	// PersistenceIO indicates the index store failed. Fatal for the command.
	PersistenceIO ErrorCode = "PERSISTENCE_IO"
	// ConfigInvalid indicates the configuration file could not be parsed or
	// validated. Fatal before any work.
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// FileNotFoundInIndex indicates a command argument names a file that is
	// not in the index.
	FileNotFoundInIndex ErrorCode = "FILE_NOT_FOUND_IN_INDEX"
	// Cancelled indicates the command was interrupted.
	Cancelled ErrorCode = "CANCELLED"
)

// StatikError represents an error with a stable code and message
type StatikError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new StatikError
func New(code ErrorCode, message string, cause error) *StatikError {
	return &StatikError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new StatikError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *StatikError {
	return &StatikError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *StatikError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *StatikError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *StatikError) WithDetails(details interface{}) *StatikError {
	e.Details = details
	return e
}

// CodeOf returns the error code of err if it is a StatikError, or "" otherwise.
func CodeOf(err error) ErrorCode {
	if se, ok := err.(*StatikError); ok {
		return se.Code
	}
	return ""
}
