package protocol

import (
	"fmt"
)

// ErrorType represents the category of a codec error
type ErrorType int

const (
	// ErrTypeUnsupportedVersion indicates a payload from an unknown protocol version
	ErrTypeUnsupportedVersion ErrorType = iota
	// ErrTypeUnsupportedPort indicates a port number with no known frame layout
	ErrTypeUnsupportedPort
	// ErrTypeShortHeader indicates a payload shorter than its port's header
	ErrTypeShortHeader
	// ErrTypeInvalidSchema indicates a malformed channel schema (programming error)
	ErrTypeInvalidSchema
	// ErrTypeValueOverflow indicates a value that does not fit its field
	ErrTypeValueOverflow
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeUnsupportedVersion:
		return "Unsupported Version"
	case ErrTypeUnsupportedPort:
		return "Unsupported Port"
	case ErrTypeShortHeader:
		return "Short Header"
	case ErrTypeInvalidSchema:
		return "Invalid Schema"
	case ErrTypeValueOverflow:
		return "Value Overflow"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// CodecError is returned by every fallible codec operation.
// Match categories with errors.Is against the Err* sentinels below.
type CodecError struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable detail
	Port    Port      // Port the payload arrived on (0 if not applicable)
	Err     error     // Underlying error (if any)
}

// Sentinels for errors.Is. Only the Type is compared.
var (
	ErrUnsupportedVersion = &CodecError{Type: ErrTypeUnsupportedVersion}
	ErrUnsupportedPort    = &CodecError{Type: ErrTypeUnsupportedPort}
	ErrShortHeader        = &CodecError{Type: ErrTypeShortHeader}
	ErrInvalidSchema      = &CodecError{Type: ErrTypeInvalidSchema}
	ErrValueOverflow      = &CodecError{Type: ErrTypeValueOverflow}
)

// Error implements the error interface
func (e *CodecError) Error() string {
	msg := e.Type.String()
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Port != 0 {
		msg = fmt.Sprintf("%s (port %d)", msg, e.Port)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *CodecError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a CodecError of the same type.
func (e *CodecError) Is(target error) bool {
	t, ok := target.(*CodecError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

func newError(typ ErrorType, port Port, format string, args ...any) *CodecError {
	return &CodecError{
		Type:    typ,
		Message: fmt.Sprintf(format, args...),
		Port:    port,
	}
}
