package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/ensembleai/ensemble/core"
)

// conditionalExecutor routes a query through the designated orchestrator
// participant first, then invokes each step whose condition is satisfied
// by the routing decision.
type conditionalExecutor struct {
	base
}

// Execute implements Executor.
//
// Phase 1 invokes the orchestrator with a routing prompt; its response
// text is the routing decision. Phase 2 invokes "always" steps
// unconditionally and "if_needed" steps only when the participant's role
// appears in the decision text (case-insensitive substring). Unselected
// steps are simply absent from the outputs, not recorded as failures.
func (e *conditionalExecutor) Execute(ctx context.Context, def *core.WorkflowDefinition, runID, query string) (*Result, error) {
	outputs := core.NewOutputs()
	res := &Result{Outputs: outputs}

	orchID := def.OrchestratorID
	prompt := routingPrompt(query)

	e.logComm(ctx, runID, orchID, orchID, core.MessageQuery, prompt)
	decision, err := e.invoke(ctx, orchID, prompt, nil)
	if err != nil {
		return res, fmt.Errorf("routing decision failed: %w", err)
	}
	e.logComm(ctx, runID, orchID, orchID, core.MessageResponse, decision.Text)

	decisionText := strings.ToLower(decision.Text)

	for _, step := range def.OrderedSteps() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		participant, _ := def.Participant(step.ParticipantID)
		if step.Condition == core.ConditionIfNeeded && !roleSelected(decisionText, participant.Role) {
			e.logger.Debug("step not selected by routing decision",
				"run_id", runID, "participant", step.ParticipantID, "role", participant.Role)
			continue
		}

		out, err := e.invoke(ctx, step.ParticipantID, query, outputs)
		outputs.Set(out)
		if err != nil {
			if participant.Optional {
				continue
			}
			return res, fmt.Errorf("conditional execution failed at participant %s: %w", step.ParticipantID, err)
		}
	}

	return res, nil
}

// roleSelected reports whether the lowercased routing decision mentions
// the participant's role. A participant without a role can never be
// selected by an if_needed condition.
func roleSelected(decisionText, role string) bool {
	if role == "" {
		return false
	}
	return strings.Contains(decisionText, strings.ToLower(role))
}
