package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so errors.Is(err, ErrNotFound)
// matches every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

const (
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInsufficientQuantity = "INSUFFICIENT_QUANTITY"
	CodeInvalidOperation     = "INVALID_OPERATION"
	CodeInternal             = "INTERNAL_ERROR"
)

// Predefined errors, used as errors.Is targets and as templates for Clone.
var (
	ErrNotFound             = New(CodeNotFound, http.StatusNotFound, "resource not found")
	ErrConflict             = New(CodeConflict, http.StatusConflict, "conflict")
	ErrInsufficientQuantity = New(CodeInsufficientQuantity, http.StatusConflict, "insufficient quantity")
	ErrInvalidOperation     = New(CodeInvalidOperation, http.StatusBadRequest, "invalid operation")
	ErrInternal             = New(CodeInternal, http.StatusInternalServerError, "internal server error")
)

// NotFound reports a missing entity, e.g. NotFound("Location", "3-1").
func NotFound(resource, id string) *Error {
	e := Clone(ErrNotFound, fmt.Sprintf("%s %s not found", resource, id))
	e.Details = map[string]interface{}{"resource": resource, "id": id}
	return e
}

// Conflict reports a uniqueness violation on create.
func Conflict(resource, id string) *Error {
	e := Clone(ErrConflict, fmt.Sprintf("%s %s already exists", resource, id))
	e.Details = map[string]interface{}{"resource": resource, "id": id}
	return e
}

// InsufficientQuantity reports a removal or move exceeding available stock.
func InsufficientQuantity(requested, available int, location string) *Error {
	msg := fmt.Sprintf("insufficient quantity: requested %d, available %d", requested, available)
	if location != "" {
		msg = fmt.Sprintf("insufficient quantity at %s: requested %d, available %d", location, requested, available)
	}
	e := Clone(ErrInsufficientQuantity, msg)
	e.Details = map[string]interface{}{"requested": requested, "available": available}
	if location != "" {
		e.Details["location"] = location
	}
	return e
}

// InvalidOperation reports a business-rule violation.
func InvalidOperation(action, reason string) *Error {
	e := Clone(ErrInvalidOperation, fmt.Sprintf("cannot %s: %s", action, reason))
	e.Details = map[string]interface{}{"action": action, "reason": reason}
	return e
}

// WrapInvalid maps a storage or transport failure onto InvalidOperation, keeping the
// cause message as the reason. Domain errors pass through untouched.
func WrapInvalid(err error, action string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	wrapped := InvalidOperation(action, err.Error())
	wrapped.Err = err
	return wrapped
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	clone.Details = nil
	return &clone
}
