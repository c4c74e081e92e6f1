package core

import (
	"context"
	"errors"
	"fmt"
)

// Output is the result of invoking a single participant.
type Output struct {
	ParticipantID string `json:"participant_id"`
	Text          string `json:"text"`
	Succeeded     bool   `json:"succeeded"`
	ErrorDetail   string `json:"error_detail,omitempty"`
}

// FailureKind classifies why an invocation failed. Strategy executors use
// the kind together with the participant's Optional flag to decide whether
// a failure is fatal or skippable.
type FailureKind int

const (
	// FailureUnavailable means the participant is unknown, inactive or
	// misconfigured on the execution service.
	FailureUnavailable FailureKind = iota
	// FailureTimeout means the invocation exceeded its per-step deadline.
	FailureTimeout
	// FailureExecution covers any other downstream failure.
	FailureExecution
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureUnavailable:
		return "unavailable"
	case FailureTimeout:
		return "timeout"
	case FailureExecution:
		return "execution_error"
	default:
		return "unknown"
	}
}

// InvokeError is the structured failure surfaced by an Invoker.
type InvokeError struct {
	ParticipantID string
	Kind          FailureKind
	Err           error
}

// Error implements the error interface.
func (e *InvokeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("participant %s: %s: %v", e.ParticipantID, e.Kind, e.Err)
	}
	return fmt.Sprintf("participant %s: %s", e.ParticipantID, e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *InvokeError) Unwrap() error { return e.Err }

// NewInvokeError wraps a cause as a classified invocation failure.
func NewInvokeError(participantID string, kind FailureKind, err error) *InvokeError {
	return &InvokeError{ParticipantID: participantID, Kind: kind, Err: err}
}

// AsInvokeError extracts an *InvokeError from an error chain.
func AsInvokeError(err error) (*InvokeError, bool) {
	var ie *InvokeError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// Invoker is the single seam through which the engine calls out to the
// external agent execution service. Implementations must be safe for
// concurrent calls on distinct participant IDs; the Parallel strategy
// invokes many at once.
//
// prior carries the outputs of already-completed participants. The invoker
// is responsible for formatting that context into whatever the underlying
// agent expects; the orchestration core does not care how.
type Invoker interface {
	Invoke(ctx context.Context, participantID, input string, prior *Outputs) (Output, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, participantID, input string, prior *Outputs) (Output, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, participantID, input string, prior *Outputs) (Output, error) {
	return f(ctx, participantID, input, prior)
}
