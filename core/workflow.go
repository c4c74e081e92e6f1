package core

import (
	"sort"
	"time"
)

// Strategy selects the coordination algorithm for a run.
type Strategy string

const (
	// StrategySequential pipelines steps: each stage's answer replaces the
	// running query for the next stage.
	StrategySequential Strategy = "sequential"
	// StrategyParallel fans out all steps with the original query, batched
	// by MaxParallelAgents.
	StrategyParallel Strategy = "parallel"
	// StrategyConditional routes through the orchestrator participant and
	// invokes if_needed steps only when selected.
	StrategyConditional Strategy = "conditional"
	// StrategyHierarchical delegates subtasks and lets the orchestrator
	// synthesize the final answer itself.
	StrategyHierarchical Strategy = "hierarchical"
)

// Valid reports whether s is one of the four known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySequential, StrategyParallel, StrategyConditional, StrategyHierarchical:
		return true
	}
	return false
}

// RequiresOrchestrator reports whether the strategy needs a designated
// orchestrator participant before a run may start.
func (s Strategy) RequiresOrchestrator() bool {
	return s == StrategyConditional || s == StrategyHierarchical
}

// SynthesisPolicy selects how participant outputs combine into one answer.
type SynthesisPolicy string

const (
	// SynthesisConcatenate joins successful outputs with blank lines.
	SynthesisConcatenate SynthesisPolicy = "concatenate"
	// SynthesisSummarize asks the orchestrator participant for a cohesive
	// synthesis of all outputs.
	SynthesisSummarize SynthesisPolicy = "summarize"
	// SynthesisVote returns the most frequent output text, exact string
	// equality, ties broken by first-seen order.
	SynthesisVote SynthesisPolicy = "vote"
)

// Valid reports whether p is a known synthesis policy.
func (p SynthesisPolicy) Valid() bool {
	switch p {
	case SynthesisConcatenate, SynthesisSummarize, SynthesisVote:
		return true
	}
	return false
}

// Condition gates a step's execution under the Conditional strategy.
type Condition string

const (
	// ConditionAlways executes the step unconditionally.
	ConditionAlways Condition = "always"
	// ConditionIfNeeded executes the step only when the orchestrator's
	// routing decision mentions the participant's role.
	ConditionIfNeeded Condition = "if_needed"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	return c == ConditionAlways || c == ConditionIfNeeded
}

// Step is one entry of a workflow's ordered step sequence.
type Step struct {
	ParticipantID  string    `json:"participant_id"`
	ExecutionOrder int       `json:"execution_order"`
	Condition      Condition `json:"condition,omitempty"`
	DependsOn      []string  `json:"depends_on,omitempty"`
}

// WorkflowStats carries the rolling run statistics embedded in a workflow.
// The average is maintained incrementally, never recomputed by rescan.
type WorkflowStats struct {
	TotalRuns       int64         `json:"total_runs"`
	SuccessfulRuns  int64         `json:"successful_runs"`
	AverageDuration time.Duration `json:"average_duration"`
}

// RecordRun folds one terminal run into the stats. The running-average
// formula uses the pre-increment total:
//
//	newAvg = (oldAvg*totalRuns + duration) / (totalRuns + 1)
//
// so after N runs the average equals the arithmetic mean of the N recorded
// durations. Only successful runs increment SuccessfulRuns.
func (s *WorkflowStats) RecordRun(duration time.Duration, success bool) {
	s.AverageDuration = time.Duration(
		(int64(s.AverageDuration)*s.TotalRuns + int64(duration)) / (s.TotalRuns + 1),
	)
	s.TotalRuns++
	if success {
		s.SuccessfulRuns++
	}
}

// WorkflowDefinition is the declarative description of a workflow: its
// coordinating strategy, ordered steps and synthesis policy. Pure data,
// validated by the workflow package before any run is allowed to start.
// Definitions are mutated only between runs, never while one is Running.
type WorkflowDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Strategy Strategy `json:"strategy"`

	// OrchestratorID designates the participant that plans, routes and
	// synthesizes. Required by the Conditional and Hierarchical strategies
	// and by the summarize synthesis policy.
	OrchestratorID string `json:"orchestrator_id,omitempty"`

	Participants []Participant `json:"participants"`
	Steps        []Step        `json:"steps"`

	SynthesisPolicy SynthesisPolicy `json:"synthesis_policy"`

	// MaxParallelAgents bounds in-flight invocations for the Parallel
	// strategy. Always >= 1 after loading.
	MaxParallelAgents int `json:"max_parallel_agents"`

	// IsActive soft-disables the workflow; inactive workflows cannot run.
	IsActive bool `json:"is_active"`

	Stats WorkflowStats `json:"stats"`
}

// Participant returns the declared participant with the given ID.
func (w *WorkflowDefinition) Participant(id string) (Participant, bool) {
	for _, p := range w.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// OrderedSteps returns the steps sorted by ExecutionOrder ascending with
// ties broken by declaration order. The sort is stable so the result is
// deterministic for a fixed definition.
func (w *WorkflowDefinition) OrderedSteps() []Step {
	steps := make([]Step, len(w.Steps))
	copy(steps, w.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].ExecutionOrder < steps[j].ExecutionOrder
	})
	return steps
}

// Clone returns a deep copy safe for independent mutation.
func (w *WorkflowDefinition) Clone() *WorkflowDefinition {
	clone := *w
	clone.Participants = make([]Participant, len(w.Participants))
	copy(clone.Participants, w.Participants)
	clone.Steps = make([]Step, len(w.Steps))
	for i, s := range w.Steps {
		cs := s
		cs.DependsOn = append([]string(nil), s.DependsOn...)
		clone.Steps[i] = cs
	}
	return &clone
}
