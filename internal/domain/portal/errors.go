package portal

import (
	"errors"
	"fmt"
)

// Base error kinds for errors.Is() checking. The four kinds partition every
// failure the monitor can see:
//
//   - ErrSession: no valid portal session could be established. Fatal for
//     the current cycle; the driver retries next cycle.
//   - ErrSource: an upstream call failed after its retry budget. Surfaced
//     to the caller, triggers driver backoff.
//   - ErrNotFound: a user-selected semester label matched no source ref.
//     Surfaced to the interactive caller, never retried.
//   - ErrParsing: PDF extraction failed internally. Always caught and
//     downgraded to "no subjects found" before leaving the marks path.
var (
	ErrSession  = errors.New("no valid portal session")
	ErrSource   = errors.New("upstream source failure")
	ErrNotFound = errors.New("not found")
	ErrParsing  = errors.New("parsing failure")

	ErrTimeout     = errors.New("operation timeout")
	ErrUnsupported = errors.New("operation unsupported by portal")
)

// Error is a monitor error with context. Kind is one of the base kinds
// above so callers can branch with errors.Is without string matching.
type Error struct {
	Domain  string // e.g. "webportal", "marks", "attendance"
	Op      string // operation that failed, e.g. "GetGradeCard"
	Kind    error  // base kind for errors.Is() checking
	Message string // human-readable message
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against both Kind and Err.
func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewError creates an error without an underlying cause.
func NewError(domain, op string, kind error, message string) *Error {
	return &Error{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError wraps an existing error with monitor context.
func WrapError(domain, op string, kind error, message string, err error) *Error {
	return &Error{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// IsSession checks if the error means no session could be established.
func IsSession(err error) bool {
	return errors.Is(err, ErrSession)
}

// IsSource checks if the error is an upstream source failure.
func IsSource(err error) bool {
	return errors.Is(err, ErrSource) || errors.Is(err, ErrTimeout)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsParsing checks if the error is a parsing failure.
func IsParsing(err error) bool {
	return errors.Is(err, ErrParsing)
}

// IsUnsupported checks if the portal lacks the requested endpoint.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}
