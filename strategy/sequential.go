package strategy

import (
	"context"
	"fmt"

	"github.com/ensembleai/ensemble/core"
)

// sequentialExecutor runs steps one after another in ExecutionOrder with
// pipeline semantics: each stage's answer replaces the running query for
// the next stage. Ties in ExecutionOrder break by declaration order.
type sequentialExecutor struct {
	base
}

// Execute implements Executor.
//
// Each step is invoked with the outputs gathered so far as prior context.
// A failing optional step is recorded as failed-but-skippable and the
// pipeline input stays unchanged; a failing non-optional step aborts the
// remaining steps while retaining already-completed outputs.
func (e *sequentialExecutor) Execute(ctx context.Context, def *core.WorkflowDefinition, runID, query string) (*Result, error) {
	outputs := core.NewOutputs()
	res := &Result{Outputs: outputs}

	current := query
	prevID := ""

	for _, step := range def.OrderedSteps() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		participant, _ := def.Participant(step.ParticipantID)
		handed := current

		out, err := e.invoke(ctx, step.ParticipantID, current, outputs)
		outputs.Set(out)
		if err != nil {
			if participant.Optional {
				e.logger.Warn("optional step failed, continuing pipeline",
					"run_id", runID, "participant", step.ParticipantID, "error", err)
				continue
			}
			return res, fmt.Errorf("sequential execution failed at participant %s: %w", step.ParticipantID, err)
		}

		// From the second completed step on, record what the previous
		// step handed to this one.
		if prevID != "" {
			e.logComm(ctx, runID, prevID, step.ParticipantID, core.MessageResponse, handed)
		}

		current = out.Text
		prevID = step.ParticipantID
	}

	return res, nil
}
