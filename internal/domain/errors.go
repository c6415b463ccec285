package domain

import (
	"errors"
	"fmt"
)

// Error codes carried by *Error. The handler layer maps each code to an HTTP
// status; services never pick statuses themselves.
const (
	EINVALID      = "invalid"
	EUNAUTHORIZED = "unauthorized"
	EFORBIDDEN    = "forbidden"
	ENOTFOUND     = "not_found"
	ECONFLICT     = "conflict"
	EGONE         = "gone"
	ETOOLARGE     = "too_large"
	ERATELIMIT    = "rate_limit"
	EQUOTA        = "quota"    // plan quota reached
	EPAYMENT      = "payment"  // feature not covered by the current plan
	EUNAVAILABLE  = "unavailable"
	EINTERNAL     = "internal"
	ENOTIMPL      = "not_impl"
)

// internalMessage is what clients see for EINTERNAL and for errors that are
// not *Error at all. The real cause stays in the logs.
const internalMessage = "An internal error occurred. Please try again later."

// Error is the application error type. Code drives client behavior, Op names
// the failing operation for logs, Message is safe to show to users.
type Error struct {
	Code    string
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error with a formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the code from an error chain. Anything that is not an
// *Error counts as EINTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage extracts the user-facing message from an error chain,
// substituting a generic one for internal errors.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	return internalMessage
}

// ErrorOp extracts the operation from an error chain, if any.
func ErrorOp(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Constructors for the common cases.

func NotFound(op, resource, id string) *Error {
	return Errorf(ENOTFOUND, op, "%s with ID %q not found", resource, id)
}

func Invalid(op, message string) *Error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

func Unauthorized(op, message string) *Error {
	return &Error{Code: EUNAUTHORIZED, Op: op, Message: message}
}

func Forbidden(op, message string) *Error {
	return &Error{Code: EFORBIDDEN, Op: op, Message: message}
}

func Conflict(op, message string) *Error {
	return &Error{Code: ECONFLICT, Op: op, Message: message}
}

// Internal wraps the underlying cause; ErrorMessage hides message from
// clients but Op and Err reach the logs.
func Internal(err error, op, message string) *Error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}

// QuotaExceeded reports a plan limit that has been reached.
func QuotaExceeded(op string, feature FeatureKey, used, limit int64) *Error {
	return Errorf(EQUOTA, op, "quota reached for %s (%d/%d); upgrade your plan to continue", feature, used, limit)
}

// PaymentRequired reports an operation the current plan does not include.
func PaymentRequired(op, message string) *Error {
	return &Error{Code: EPAYMENT, Op: op, Message: message}
}

// ValidationError carries field-level messages for form-style endpoints.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError starts a validation error with one field message.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{Op: op, Fields: map[string]string{field: message}}
}

// AddFieldError appends a field message, starting a fresh ValidationError
// when err is not one.
func AddFieldError(err error, field, message string) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return NewValidationError("", field, message)
}
