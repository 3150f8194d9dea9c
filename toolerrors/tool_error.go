// Package toolerrors provides a wrapped, serializable error chain for tool
// handlers, ported from the teacher's tool error type so handler failures
// survive a process boundary (e.g. the runtime server's RPC framing)
// without losing the cause chain.
package toolerrors

import "fmt"

// ToolError is a message with an optional wrapped cause, both of which
// round-trip through JSON so errors survive an RPC hop.
type ToolError struct {
	Message string     `json:"message"`
	Cause   *ToolError `json:"cause,omitempty"`
}

// New returns a ToolError with no cause.
func New(message string) *ToolError {
	return &ToolError{Message: message}
}

// NewWithCause wraps cause under message.
func NewWithCause(message string, cause *ToolError) *ToolError {
	return &ToolError{Message: message, Cause: cause}
}

// Errorf builds a ToolError from a format string.
func Errorf(format string, args ...any) *ToolError {
	return &ToolError{Message: fmt.Sprintf(format, args...)}
}

// FromError converts a standard error chain into a ToolError chain,
// unwrapping with errors.Unwrap until the chain ends.
func FromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	if te, ok := err.(*ToolError); ok {
		return te
	}
	type unwrapper interface{ Unwrap() error }
	var cause *ToolError
	if u, ok := err.(unwrapper); ok {
		cause = FromError(u.Unwrap())
	}
	return &ToolError{Message: err.Error(), Cause: cause}
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ToolError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}
