// Package chat holds the assistant conversation: the transcript, the
// in-flight flag and the reasoning trace returned with each reply.
package chat

import (
	"context"
	"errors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Values are never modified once appended.
type Message struct {
	Role    Role
	Content string
}

// ReasoningStep is one disclosed step of how the assistant produced a reply.
// Any of the fields may be empty.
type ReasoningStep struct {
	Thought     string
	Action      string
	ActionInput string
	Observation string
}

// IsEmpty reports whether no field is populated.
func (s ReasoningStep) IsEmpty() bool {
	return s.Thought == "" && s.Action == "" && s.ActionInput == "" && s.Observation == ""
}

// Result is what a successful exchange returns.
type Result struct {
	Reply   string
	History []Message
	Trace   []ReasoningStep
}

// Transport performs a single chat exchange. history is the transcript as it
// stood before message was appended.
type Transport interface {
	Send(ctx context.Context, message string, history []Message) (Result, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, message string, history []Message) (Result, error)

func (f TransportFunc) Send(ctx context.Context, message string, history []Message) (Result, error) {
	return f(ctx, message, history)
}

// ValidationError rejects input before any request is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ErrEmptyMessage is returned by Validate for blank input.
var ErrEmptyMessage = &ValidationError{Reason: "message is empty"}

// ErrorPrefix starts every transcript entry produced by a failed exchange.
const ErrorPrefix = "Error: "

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
