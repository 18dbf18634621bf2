// Package domainerrors provides coded errors shared across services.
//
// Services attach a Code to every error they return so transports can map
// failures to status codes without inspecting message text. Stores return
// pkg/platform/sentinel errors; the service layer translates those into coded
// errors at its boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks malformed or inconsistent input: unknown buyer,
	// mismatched KRA PIN, duplicate title number, bad location hierarchy.
	CodeValidation Code = "validation"

	// CodeAuthorization marks an actor lacking the role or jurisdiction for
	// the attempted action.
	CodeAuthorization Code = "authorization"

	// CodeUnauthorized marks a missing or invalid credential (transport-level).
	CodeUnauthorized Code = "unauthorized"

	// CodeNotFound marks a referenced parcel, transfer, or user that does not exist.
	CodeNotFound Code = "not_found"

	// CodeInvalidState marks an operation attempted from a state that does not
	// permit it, including the losing side of a conditional-write race.
	CodeInvalidState Code = "invalid_state"

	// CodeInvariantViolation marks an aggregate-level invariant breach detected
	// during construction or transition validation.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeTimeout marks a transaction or request that ran out of time.
	CodeTimeout Code = "timeout"

	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// DomainError carries a code, a caller-facing message, and an optional cause.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// Is lets errors.Is match two coded errors by code and message, so tests can
// assert against dErrors.New(code, msg) values directly.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			break
		}
		de = nil
	}
	return false
}

// Is is a readability alias for HasCode at call sites that read like errors.Is.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code on err, or CodeInternal when err is uncoded.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeAuthorization:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
