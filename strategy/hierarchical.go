package strategy

import (
	"context"
	"fmt"

	"github.com/ensembleai/ensemble/core"
)

// hierarchicalExecutor delegates through the orchestrator participant in
// three phases: plan, delegate, synthesize. The orchestrator produces the
// final answer itself, so the engine skips the result synthesizer for
// this strategy.
type hierarchicalExecutor struct {
	base
}

// Execute implements Executor.
//
// The phase 1 plan is captured as opaque text but is not threaded into
// the per-participant subtask prompts; every subordinate receives the
// generic delegated prompt. This mirrors the observed behavior of the
// system this engine replaces and is a deliberate extension point, not an
// oversight.
func (e *hierarchicalExecutor) Execute(ctx context.Context, def *core.WorkflowDefinition, runID, query string) (*Result, error) {
	outputs := core.NewOutputs()
	res := &Result{Outputs: outputs}

	orchID := def.OrchestratorID

	plan, err := e.invoke(ctx, orchID, planningPrompt(query), nil)
	if err != nil {
		return res, fmt.Errorf("hierarchical planning failed: %w", err)
	}
	e.logger.Debug("hierarchical plan computed", "run_id", runID, "plan_chars", len(plan.Text))

	subtask := subtaskPrompt(query)
	for _, step := range def.OrderedSteps() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		participant, _ := def.Participant(step.ParticipantID)

		e.logComm(ctx, runID, orchID, step.ParticipantID, core.MessageHandoff, subtask)
		out, err := e.invoke(ctx, step.ParticipantID, subtask, outputs)
		outputs.Set(out)
		if err != nil {
			if participant.Optional {
				e.logger.Warn("optional subordinate failed, continuing",
					"run_id", runID, "participant", step.ParticipantID, "error", err)
				continue
			}
			return res, fmt.Errorf("hierarchical delegation failed at participant %s: %w", step.ParticipantID, err)
		}
		e.logComm(ctx, runID, step.ParticipantID, orchID, core.MessageResponse, out.Text)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	final, err := e.invoke(ctx, orchID, hierarchicalSynthesisPrompt(query, def, outputs), outputs)
	if err != nil {
		return res, fmt.Errorf("hierarchical synthesis failed: %w", err)
	}

	res.FinalAnswer = final.Text
	res.Synthesized = true
	return res, nil
}
