package openapi

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes parse failures for clearer handling and messaging.
type ErrorCode string

const (
	SchemaVersionError       ErrorCode = "SchemaVersionError"
	ReferenceResolutionError ErrorCode = "ReferenceResolutionError"
	OperationShapeError      ErrorCode = "OperationShapeError"
	SchemaTypeError          ErrorCode = "SchemaTypeError"
)

// Sentinels for errors.Is checks against ParseError codes.
var (
	ErrSchemaVersion       = errors.New("openapi: missing or unsupported version")
	ErrReferenceResolution = errors.New("openapi: reference resolution failed")
	ErrOperationShape      = errors.New("openapi: malformed operation")
	ErrSchemaType          = errors.New("openapi: contradictory schema construct")
)

// ParseError is a structured error with a JSON Pointer locating the fault.
// All codes are fatal to the parse call; no partial route list is returned.
type ParseError struct {
	Code        ErrorCode
	Message     string
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *ParseError) Error() string {
	if e.JSONPointer != "" {
		return e.Message + " at " + e.JSONPointer
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Is maps the error's code onto the matching sentinel so callers can use
// errors.Is without reaching into the struct.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrSchemaVersion:
		return e.Code == SchemaVersionError
	case ErrReferenceResolution:
		return e.Code == ReferenceResolutionError
	case ErrOperationShape:
		return e.Code == OperationShapeError
	case ErrSchemaType:
		return e.Code == SchemaTypeError
	}
	return false
}

func parseErrorf(code ErrorCode, pointer, format string, args ...any) *ParseError {
	return &ParseError{Code: code, Message: fmt.Sprintf(format, args...), JSONPointer: pointer}
}
