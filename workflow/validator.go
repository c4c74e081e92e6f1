package workflow

import (
	"fmt"

	"github.com/ensembleai/ensemble/core"
)

// Validate checks a workflow definition for structural correctness. It
// never panics and always returns the full list of problems; an empty list
// means the definition is valid. The engine calls it immediately before a
// run transitions to Running, and a non-empty result aborts the run with
// no RunRecord created.
func Validate(def *core.WorkflowDefinition) []core.ValidationError {
	var errs []core.ValidationError

	if !def.Strategy.Valid() {
		errs = append(errs, core.ValidationError{
			Code:   core.CodeMalformedDocument,
			Detail: fmt.Sprintf("unknown strategy %q", def.Strategy),
		})
	}

	declared := make(map[string]bool, len(def.Participants))
	for _, p := range def.Participants {
		declared[p.ID] = true
	}

	for i, step := range def.Steps {
		if !declared[step.ParticipantID] {
			errs = append(errs, core.ValidationError{
				Code:   core.CodeInvalidParticipantReference,
				Detail: fmt.Sprintf("step %d references undeclared participant %q", i, step.ParticipantID),
			})
		}
		for _, dep := range step.DependsOn {
			if !declared[dep] {
				errs = append(errs, core.ValidationError{
					Code:   core.CodeInvalidParticipantReference,
					Detail: fmt.Sprintf("step %d depends on undeclared participant %q", i, dep),
				})
			}
		}
	}

	needsOrchestrator := def.Strategy.RequiresOrchestrator() ||
		def.SynthesisPolicy == core.SynthesisSummarize
	if needsOrchestrator && def.OrchestratorID == "" {
		errs = append(errs, core.ValidationError{
			Code: core.CodeMissingOrchestrator,
			Detail: fmt.Sprintf("strategy %q with policy %q requires an orchestrator participant",
				def.Strategy, def.SynthesisPolicy),
		})
	}

	errs = append(errs, detectCycles(def)...)

	return errs
}

// color values for the iterative DFS below.
const (
	colorWhite = iota // unvisited
	colorGray         // on the current DFS path
	colorBlack        // fully explored
)

// detectCycles runs an iterative depth-first search with a two-color
// visiting/visited scheme over the DependsOn edges of the step graph. A
// gray-to-gray edge is a back edge, which means a cycle.
func detectCycles(def *core.WorkflowDefinition) []core.ValidationError {
	edges := make(map[string][]string, len(def.Steps))
	for _, step := range def.Steps {
		edges[step.ParticipantID] = append(edges[step.ParticipantID], step.DependsOn...)
	}

	colors := make(map[string]int, len(edges))

	var errs []core.ValidationError
	for _, step := range def.Steps {
		if colors[step.ParticipantID] != colorWhite {
			continue
		}
		if cycle := visit(step.ParticipantID, edges, colors); cycle != "" {
			errs = append(errs, core.ValidationError{
				Code:   core.CodeCircularDependency,
				Detail: fmt.Sprintf("dependency cycle involving participant %q", cycle),
			})
		}
	}
	return errs
}

// frame is one entry of the explicit DFS stack.
type frame struct {
	node string
	next int // index of the next edge to explore
}

// visit explores the graph from root without recursion. It returns the
// node at which a back edge was found, or "" when the subgraph is acyclic.
func visit(root string, edges map[string][]string, colors map[string]int) string {
	stack := []frame{{node: root}}
	colors[root] = colorGray

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		deps := edges[top.node]

		if top.next < len(deps) {
			dep := deps[top.next]
			top.next++
			switch colors[dep] {
			case colorGray:
				return dep
			case colorWhite:
				colors[dep] = colorGray
				stack = append(stack, frame{node: dep})
			}
			continue
		}

		colors[top.node] = colorBlack
		stack = stack[:len(stack)-1]
	}
	return ""
}
