// Package collab holds the external collaborator contracts (calendar, email)
// and their HTTP clients. Collaborator failures are always reported as a
// typed *Error so the tool executor can translate them into machine-readable
// tool result details instead of letting raw transport errors escape.
package collab

import (
	"errors"
	"fmt"
)

// Code classifies a collaborator failure.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeInvalidInput Code = "invalid_input"
	CodeRateLimited  Code = "rate_limited"
	CodeUnavailable  Code = "unavailable"
	CodeRejected     Code = "rejected"
)

// Error is a typed collaborator failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a typed collaborator error.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the failure code from err. Returns false when err is not
// a collaborator error.
func CodeOf(err error) (Code, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}
