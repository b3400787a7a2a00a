package api

import "fmt"

//ErrorKind classifies errors surfaced by storage agents and the
//volume orchestration layer
type ErrorKind int

//Error kinds. Validation kinds are detected before any remote call is
//made; agent kinds map the failure reported by the storage agent on a
//given host.
const (
	ErrUnknown ErrorKind = iota
	ErrMalformedLocator
	ErrSchemeMismatch
	ErrInvalidArgument
	ErrAgentUnreachable
	ErrInsufficientCapacity
	ErrAlreadyExists
	ErrNotFound
	ErrChildUnreachable
	ErrSizeMismatch
	ErrConsistency
	ErrPartialFailure
)

//String returns a short name of the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedLocator:
		return "malformed locator"
	case ErrSchemeMismatch:
		return "scheme mismatch"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrAgentUnreachable:
		return "agent unreachable"
	case ErrInsufficientCapacity:
		return "insufficient capacity"
	case ErrAlreadyExists:
		return "already exists"
	case ErrNotFound:
		return "not found"
	case ErrChildUnreachable:
		return "child unreachable"
	case ErrSizeMismatch:
		return "size mismatch"
	case ErrConsistency:
		return "consistency"
	case ErrPartialFailure:
		return "partial failure"
	}
	return "unknown"
}

//Error carries an ErrorKind along the usual cause chain so callers can
//branch on the failure class without matching message strings
type Error struct {
	Kind    ErrorKind
	Message string
	Reason  error
}

//Error formats the error message
func (e *Error) Error() string {
	if e.Reason != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s (%s): %s", e.Message, e.Kind, e.Reason.Error())
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason.Error())
	}
	if e.Message != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
	}
	return e.Kind.String()
}

//Cause returns the underlying error, following the pkg/errors causer
//convention
func (e *Error) Cause() error {
	return e.Reason
}

//Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Reason
}

//NewError creates a typed error with a formatted message
func NewError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Reason:  cause,
	}
}

//KindOf walks the cause chain of err and returns the kind of the first
//typed error found, or ErrUnknown
func KindOf(err error) ErrorKind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return ErrUnknown
}

//IsValidation tells whether err was caused by malformed caller input
func IsValidation(err error) bool {
	switch KindOf(err) {
	case ErrMalformedLocator, ErrSchemeMismatch, ErrInvalidArgument:
		return true
	}
	return false
}

//IsNotFound tells whether err reports a missing agent-side resource
func IsNotFound(err error) bool {
	return KindOf(err) == ErrNotFound
}

//IsAlreadyExists tells whether err reports a duplicate agent-side resource
func IsAlreadyExists(err error) bool {
	return KindOf(err) == ErrAlreadyExists
}

//IsUnreachable tells whether err reports a communication failure with a
//storage agent
func IsUnreachable(err error) bool {
	return KindOf(err) == ErrAgentUnreachable
}
