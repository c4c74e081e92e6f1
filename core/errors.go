package core

import (
	"fmt"
	"strings"
)

// ValidationCode identifies a structural workflow problem found before a
// run starts.
type ValidationCode string

const (
	// CodeCircularDependency marks a cycle in the step dependency graph.
	CodeCircularDependency ValidationCode = "circular_dependency"
	// CodeInvalidParticipantReference marks a step or dependency naming a
	// participant the workflow does not declare.
	CodeInvalidParticipantReference ValidationCode = "invalid_participant_reference"
	// CodeMissingOrchestrator marks a strategy or policy that needs an
	// orchestrator participant the workflow does not designate.
	CodeMissingOrchestrator ValidationCode = "missing_orchestrator"
	// CodeMalformedDocument marks a workflow document rejected at load time.
	CodeMalformedDocument ValidationCode = "malformed_document"
)

// ValidationError describes one structural problem in a workflow
// definition. Validation never partially executes a run.
type ValidationError struct {
	Code   ValidationCode `json:"code"`
	Detail string         `json:"detail"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// ValidationErrors aggregates the full list so callers see every problem at
// once rather than fixing them one at a time.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "workflow validation failed: " + strings.Join(msgs, "; ")
}

// EngineError marks a programmer or configuration error such as an
// unrecognized strategy or synthesis policy. Always fatal; the engine never
// silently defaults around one.
type EngineError struct {
	Op     string
	Detail string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine: %s: %s", e.Op, e.Detail)
}

// NewEngineError constructs an EngineError for the given operation.
func NewEngineError(op, format string, args ...any) *EngineError {
	return &EngineError{Op: op, Detail: fmt.Sprintf(format, args...)}
}
