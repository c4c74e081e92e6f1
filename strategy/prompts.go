package strategy

import (
	"fmt"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/synthesis"
)

// routingPrompt asks the orchestrator which participants a query should
// reach. Its response text is matched against participant roles.
func routingPrompt(query string) string {
	return fmt.Sprintf("Analyze this query and determine which agents to route to: %s", query)
}

// planningPrompt asks the orchestrator to decompose the task. The plan is
// kept as opaque text; it is not parsed into a typed structure.
func planningPrompt(query string) string {
	return fmt.Sprintf("Break down this task into subtasks: %s", query)
}

// subtaskPrompt is the generic delegated prompt every subordinate receives
// under the Hierarchical strategy.
func subtaskPrompt(query string) string {
	return fmt.Sprintf("Handle your part of: %s", query)
}

// hierarchicalSynthesisPrompt asks the orchestrator to produce the final
// answer from the original query and all subordinate outputs.
func hierarchicalSynthesisPrompt(query string, def *core.WorkflowDefinition, outputs *core.Outputs) string {
	return fmt.Sprintf(
		"Original query: %s\n\nSubordinate agent results:\n%s\n\nSynthesize a final response:",
		query, synthesis.FormatOutputs(def, outputs),
	)
}
