package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrorForbidden       ErrorCode = "FORBIDDEN"
	ErrorNotFound        ErrorCode = "NOT_FOUND"
	ErrorNoMemories      ErrorCode = "NO_MEMORIES"
	ErrorRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// Message returns the user-facing text for an error code.
func Message(code ErrorCode) string {
	switch code {
	case ErrorInvalidInput:
		return "The request was invalid."
	case ErrorUnauthenticated:
		return "You must be signed in to do that."
	case ErrorForbidden:
		return "You do not have permission to change this memorial."
	case ErrorNotFound:
		return "Memorial not found."
	case ErrorNoMemories:
		return "No memories found to generate a narrative. Add at least one memory first."
	case ErrorRateLimited:
		return "Please wait before generating another narrative."
	default:
		return "Something went wrong while generating the narrative. Please try again."
	}
}
