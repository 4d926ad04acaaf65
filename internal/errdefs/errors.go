// Package errdefs defines the error kinds the query engine raises.
//
// Callers branch on the kind (IsConflict, IsNotFound, IsInvalidRequest),
// never on message text.
package errdefs

import (
	"errors"
	"fmt"
)

// Code categorizes engine errors.
type Code string

const (
	// CodeConflict indicates a create hit an identifier already in the table.
	CodeConflict Code = "CONFLICT"

	// CodeNotFound indicates update/delete targeted a missing record (strict mode only).
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidRequest indicates a malformed query: unknown operator,
	// incomparable operand kinds, bad pagination or sort direction.
	CodeInvalidRequest Code = "INVALID_REQUEST"
)

// Error is a structured engine error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Object is the table the operation targeted, when known.
	Object string

	// ID is the record identifier involved, when known.
	ID string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Object != "" && e.ID != "":
		return fmt.Sprintf("%s: %s (object=%s, id=%s)", e.Code, e.Message, e.Object, e.ID)
	case e.Object != "":
		return fmt.Sprintf("%s: %s (object=%s)", e.Code, e.Message, e.Object)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	return CodeOf(err) == CodeConflict
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsInvalidRequest reports whether err is an invalid-request error.
func IsInvalidRequest(err error) bool {
	return CodeOf(err) == CodeInvalidRequest
}

// Conflict creates a conflict error for a duplicate identifier.
func Conflict(object, id string) *Error {
	return &Error{
		Code:    CodeConflict,
		Message: "record with this id already exists",
		Object:  object,
		ID:      id,
	}
}

// NotFound creates a not-found error for a missing record.
func NotFound(object, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: "record not found",
		Object:  object,
		ID:      id,
	}
}

// InvalidRequest creates an invalid-request error.
func InvalidRequest(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapInvalidRequest creates an invalid-request error around a cause.
func WrapInvalidRequest(err error, format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidRequest,
		Message: fmt.Sprintf(format, args...) + ": " + err.Error(),
		Err:     err,
	}
}
