package usecase

import (
	"errors"
	"fmt"
)

// ErrorCode is what callers of /api/chat see in the "error" field.
type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Reasons refine a code for logs and the exchange log; they are never sent
// to clients.
const (
	ReasonEmptyMessage   = "empty_message"
	ReasonMessageTooLong = "message_too_long"
	ReasonModelFailed    = "gemini_error"
	ReasonEmptyReply     = "empty_reply"
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

// CodeOf classifies err. Anything that is not a *Error is internal.
func CodeOf(err error) ErrorCode {
	var ucErr *Error
	if errors.As(err, &ucErr) && ucErr != nil {
		return ucErr.Code
	}
	return ErrorInternal
}
