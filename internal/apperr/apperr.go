// Package apperr defines the error taxonomy returned by the state-custody layer.
// Store backends classify driver failures into these codes and the service never
// lets an uncategorized error escape.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class.
type Code string

const (
	CodeNotOwned       Code = "NOT_OWNED"       // 403
	CodeWriteFailed    Code = "WRITE_FAILED"    // 503
	CodeReadFailed     Code = "READ_FAILED"     // 503
	CodeInvalidRequest Code = "INVALID_REQUEST" // 400
	CodeNotFound       Code = "NOT_FOUND"       // 404
	CodeInternal       Code = "INTERNAL"        // 500
)

// notAccessible is the only message a NOT_OWNED error ever carries.
const notAccessible = "not accessible"

// Error is a categorized failure from the custody layer.
type Error struct {
	Code      Code
	Op        string
	Message   string
	Retryable bool
	Cause     error
}

// Sentinels for errors.Is comparisons. Only the code is compared.
var (
	ErrNotOwned       = &Error{Code: CodeNotOwned}
	ErrWriteFailed    = &Error{Code: CodeWriteFailed}
	ErrReadFailed     = &Error{Code: CodeReadFailed}
	ErrInvalidRequest = &Error{Code: CodeInvalidRequest}
	ErrNotFound       = &Error{Code: CodeNotFound}
	ErrInternal       = &Error{Code: CodeInternal}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if e.Cause != nil && e.Code != CodeNotOwned {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Op, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NotOwned reports a run or document that does not belong to the claimed session.
// It deliberately carries no identifiers.
func NotOwned(op string) *Error {
	return &Error{Code: CodeNotOwned, Op: op, Message: notAccessible}
}

// WriteFailed reports a write the store rejected.
func WriteFailed(op string, cause error, retryable bool) *Error {
	return &Error{
		Code:      CodeWriteFailed,
		Op:        op,
		Message:   "write rejected by store",
		Retryable: retryable,
		Cause:     cause,
	}
}

// ReadFailed reports a read the store could not serve.
func ReadFailed(op string, cause error, retryable bool) *Error {
	return &Error{
		Code:      CodeReadFailed,
		Op:        op,
		Message:   "read failed",
		Retryable: retryable,
		Cause:     cause,
	}
}

// InvalidRequest reports input rejected before it reached the store.
func InvalidRequest(op, msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Op: op, Message: msg}
}

// NotFound reports a missing record that is not session-scoped.
func NotFound(op, what string) *Error {
	return &Error{Code: CodeNotFound, Op: op, Message: what + " not found"}
}

// Internal wraps anything that fits no other class.
func Internal(op string, cause error) *Error {
	return &Error{Code: CodeInternal, Op: op, Message: "internal error", Cause: cause}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if e, ok := As(err); ok {
		return e.Code == code
	}
	return false
}

// IsRetryable reports whether the caller may retry err with backoff.
func IsRetryable(err error) bool {
	if e, ok := As(err); ok {
		return e.Retryable
	}
	return false
}

// Ensure returns err unchanged when it is already categorized, and otherwise
// wraps it under fallback so raw driver errors never leave the layer.
func Ensure(op string, err error, fallback Code) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	switch fallback {
	case CodeWriteFailed:
		return WriteFailed(op, err, false)
	case CodeReadFailed:
		return ReadFailed(op, err, false)
	default:
		return Internal(op, err)
	}
}

// HTTPStatus maps an error to the status an adapter should return.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case CodeNotOwned:
		return http.StatusForbidden
	case CodeWriteFailed, CodeReadFailed:
		return http.StatusServiceUnavailable
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Public renders the client-facing view of err. Causes are never included;
// INTERNAL and NOT_OWNED collapse to fixed messages.
func Public(err error) map[string]any {
	e, ok := As(err)
	if !ok || e.Code == CodeInternal {
		return map[string]any{
			"code":    CodeInternal,
			"message": "an internal error occurred",
		}
	}
	out := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Code == CodeWriteFailed || e.Code == CodeReadFailed {
		out["retryable"] = e.Retryable
	}
	return out
}
