package deviceconfig

import (
	"fmt"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeValidation indicates an invalid configuration value
	ErrTypeValidation ErrorType = iota
	// ErrTypeParse indicates a malformed flag or payload
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ConfigError represents an error building or parsing a configuration
type ConfigError struct {
	Type    ErrorType // Category of error
	Field   string    // Offending field ("period", "nsamples"), if known
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error
func NewValidationError(message string) *ConfigError {
	return &ConfigError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

// NewFieldError creates a validation error for a named field
func NewFieldError(field string, err error) *ConfigError {
	return &ConfigError{
		Type:    ErrTypeValidation,
		Field:   field,
		Message: "invalid value",
		Err:     err,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *ConfigError {
	return &ConfigError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	if cfgErr, ok := err.(*ConfigError); ok {
		return cfgErr.Type == ErrTypeValidation
	}
	return false
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	if cfgErr, ok := err.(*ConfigError); ok {
		return cfgErr.Type == ErrTypeParse
	}
	return false
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	cfgErr, ok := err.(*ConfigError)
	if !ok {
		return err.Error()
	}

	switch {
	case cfgErr.Type == ErrTypeParse && cfgErr.Field == "period":
		return "period must look like 30s, 10m or 2h"
	case cfgErr.Field != "" && cfgErr.Err != nil:
		return fmt.Sprintf("%s: %v", cfgErr.Field, cfgErr.Err)
	case cfgErr.Field != "":
		return fmt.Sprintf("%s: %s", cfgErr.Field, cfgErr.Message)
	default:
		return cfgErr.Message
	}
}
