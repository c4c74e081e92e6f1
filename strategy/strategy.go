package strategy

import (
	"context"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
)

// CommunicationLog receives the append-only inter-agent communication
// entries executors emit while a run progresses. The recorder implements
// it; tests substitute a capture double.
type CommunicationLog interface {
	LogCommunication(ctx context.Context, runID, from, to string, kind core.MessageKind, content string) error
}

// Result is what an executor hands back to the engine. Outputs is always
// non-nil and retains whatever partial outputs were gathered, even when
// Execute also returns an error.
type Result struct {
	Outputs *core.Outputs

	// FinalAnswer and Synthesized are set only by strategies that perform
	// their own synthesis (Hierarchical); the engine then bypasses the
	// result synthesizer.
	FinalAnswer string
	Synthesized bool
}

// Executor is the common contract of all strategy implementations.
//
// Execute must check ctx between steps (Sequential, Conditional,
// Hierarchical) or between batches (Parallel) so an external cancellation
// stops new dispatches promptly. In-flight invocations are allowed to
// finish per the Invoker's own cancellation contract.
type Executor interface {
	Execute(ctx context.Context, def *core.WorkflowDefinition, runID, query string) (*Result, error)
}

// Deps bundles the collaborators every executor needs.
type Deps struct {
	Invoker core.Invoker
	Comms   CommunicationLog
	Logger  logging.Logger
}

// For returns the executor for the given strategy. The switch is
// deliberately exhaustive over the closed strategy set; an unknown value
// fails fast instead of silently defaulting.
func For(s core.Strategy, deps Deps) (Executor, error) {
	if deps.Logger == nil {
		deps.Logger = logging.NoOpLogger{}
	}
	b := base{inv: deps.Invoker, comms: deps.Comms, logger: deps.Logger}
	switch s {
	case core.StrategySequential:
		return &sequentialExecutor{base: b}, nil
	case core.StrategyParallel:
		return &parallelExecutor{base: b}, nil
	case core.StrategyConditional:
		return &conditionalExecutor{base: b}, nil
	case core.StrategyHierarchical:
		return &hierarchicalExecutor{base: b}, nil
	default:
		return nil, core.NewEngineError("strategy", "unrecognized strategy %q", s)
	}
}

// base bundles the shared collaborators and helpers embedded by every
// executor.
type base struct {
	inv    core.Invoker
	comms  CommunicationLog
	logger logging.Logger
}

// invoke runs one participant and normalizes the result: on failure the
// returned Output carries Succeeded=false plus the error detail so partial
// failures stay visible in the run record.
func (b *base) invoke(ctx context.Context, participantID, input string, prior *core.Outputs) (core.Output, error) {
	out, err := b.inv.Invoke(ctx, participantID, input, prior)
	if err != nil {
		return core.Output{
			ParticipantID: participantID,
			Succeeded:     false,
			ErrorDetail:   err.Error(),
		}, err
	}
	out.ParticipantID = participantID
	out.Succeeded = true
	return out, nil
}

// logComm appends a communication entry, tolerating a nil log. Append
// failures are logged and swallowed: the audit trail must never fail a
// run that is otherwise progressing.
func (b *base) logComm(ctx context.Context, runID, from, to string, kind core.MessageKind, content string) {
	if b.comms == nil {
		return
	}
	if err := b.comms.LogCommunication(ctx, runID, from, to, kind, content); err != nil {
		b.logger.Warn("failed to append communication entry",
			"run_id", runID, "from", from, "to", to, "error", err)
	}
}
