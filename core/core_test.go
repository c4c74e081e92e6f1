package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutputs_CompletionOrder(t *testing.T) {
	o := NewOutputs()
	o.Set(Output{ParticipantID: "b", Text: "second registered first", Succeeded: true})
	o.Set(Output{ParticipantID: "a", Text: "first registered second", Succeeded: true})
	o.Set(Output{ParticipantID: "c", Text: "third", Succeeded: true})

	assert.Equal(t, []string{"b", "a", "c"}, o.IDs())
	assert.Equal(t, 3, o.Len())
}

func TestOutputs_SetUpdatesInPlace(t *testing.T) {
	o := NewOutputs()
	o.Set(Output{ParticipantID: "a", Text: "v1"})
	o.Set(Output{ParticipantID: "b", Text: "other"})
	o.Set(Output{ParticipantID: "a", Text: "v2", Succeeded: true})

	assert.Equal(t, []string{"a", "b"}, o.IDs())
	out, ok := o.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "v2", out.Text)
	assert.True(t, out.Succeeded)
}

func TestOutputs_CloneIsIndependent(t *testing.T) {
	o := NewOutputs()
	o.Set(Output{ParticipantID: "a", Text: "original"})

	clone := o.Clone()
	clone.Set(Output{ParticipantID: "a", Text: "mutated"})
	clone.Set(Output{ParticipantID: "b", Text: "new"})

	out, _ := o.Get("a")
	assert.Equal(t, "original", out.Text)
	assert.Equal(t, 1, o.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestOutputs_JSONRoundTripPreservesOrder(t *testing.T) {
	o := NewOutputs()
	o.Set(Output{ParticipantID: "z", Text: "one", Succeeded: true})
	o.Set(Output{ParticipantID: "a", Text: "two", Succeeded: false, ErrorDetail: "boom"})

	data, err := json.Marshal(o)
	assert.NoError(t, err)

	restored := NewOutputs()
	assert.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, []string{"z", "a"}, restored.IDs())
	assert.Equal(t, o.All(), restored.All())
}

func TestWorkflowStats_RecordRun_AverageIsArithmeticMean(t *testing.T) {
	var s WorkflowStats

	durations := []time.Duration{
		10 * time.Second,
		20 * time.Second,
		30 * time.Second,
	}
	for _, d := range durations {
		s.RecordRun(d, true)
	}

	assert.Equal(t, int64(3), s.TotalRuns)
	assert.Equal(t, int64(3), s.SuccessfulRuns)
	assert.Equal(t, 20*time.Second, s.AverageDuration)
}

func TestWorkflowStats_RecordRun_FailureCountsTowardAverageOnly(t *testing.T) {
	var s WorkflowStats
	s.RecordRun(10*time.Second, true)
	s.RecordRun(30*time.Second, false)

	assert.Equal(t, int64(2), s.TotalRuns)
	assert.Equal(t, int64(1), s.SuccessfulRuns)
	assert.Equal(t, 20*time.Second, s.AverageDuration)
}

func TestWorkflowStats_RecordRun_FirstRunSetsAverage(t *testing.T) {
	var s WorkflowStats
	s.RecordRun(42*time.Second, true)

	assert.Equal(t, int64(1), s.TotalRuns)
	assert.Equal(t, 42*time.Second, s.AverageDuration)
}

func TestRunStatus_Terminal(t *testing.T) {
	assert.False(t, RunPending.Terminal())
	assert.False(t, RunRunning.Terminal())
	assert.True(t, RunCompleted.Terminal())
	assert.True(t, RunFailed.Terminal())
	assert.True(t, RunCancelled.Terminal())
}

func TestRunStatus_CanTransition(t *testing.T) {
	assert.True(t, RunPending.CanTransition(RunRunning))
	assert.False(t, RunPending.CanTransition(RunCompleted))

	assert.True(t, RunRunning.CanTransition(RunCompleted))
	assert.True(t, RunRunning.CanTransition(RunFailed))
	assert.True(t, RunRunning.CanTransition(RunCancelled))
	assert.False(t, RunRunning.CanTransition(RunPending))

	// Terminal states are final.
	for _, terminal := range []RunStatus{RunCompleted, RunFailed, RunCancelled} {
		for _, next := range []RunStatus{RunPending, RunRunning, RunCompleted, RunFailed, RunCancelled} {
			assert.False(t, terminal.CanTransition(next), "%s -> %s must be illegal", terminal, next)
		}
	}
}

func TestStrategy_Valid(t *testing.T) {
	assert.True(t, StrategySequential.Valid())
	assert.True(t, StrategyParallel.Valid())
	assert.True(t, StrategyConditional.Valid())
	assert.True(t, StrategyHierarchical.Valid())
	assert.False(t, Strategy("round_robin").Valid())
}

func TestStrategy_RequiresOrchestrator(t *testing.T) {
	assert.False(t, StrategySequential.RequiresOrchestrator())
	assert.False(t, StrategyParallel.RequiresOrchestrator())
	assert.True(t, StrategyConditional.RequiresOrchestrator())
	assert.True(t, StrategyHierarchical.RequiresOrchestrator())
}

func TestWorkflowDefinition_OrderedSteps_StableTieBreak(t *testing.T) {
	def := &WorkflowDefinition{
		Steps: []Step{
			{ParticipantID: "c", ExecutionOrder: 2},
			{ParticipantID: "a", ExecutionOrder: 1},
			{ParticipantID: "b", ExecutionOrder: 1},
		},
	}

	steps := def.OrderedSteps()
	assert.Equal(t, "a", steps[0].ParticipantID)
	assert.Equal(t, "b", steps[1].ParticipantID, "equal orders keep declaration order")
	assert.Equal(t, "c", steps[2].ParticipantID)

	// The receiver's own step slice is untouched.
	assert.Equal(t, "c", def.Steps[0].ParticipantID)
}

func TestWorkflowDefinition_CloneIsDeep(t *testing.T) {
	def := &WorkflowDefinition{
		ID:           "wf",
		Participants: []Participant{{ID: "a", Role: "Research"}},
		Steps:        []Step{{ParticipantID: "a", DependsOn: []string{"b"}}},
	}

	clone := def.Clone()
	clone.Participants[0].Role = "changed"
	clone.Steps[0].DependsOn[0] = "changed"

	assert.Equal(t, "Research", def.Participants[0].Role)
	assert.Equal(t, "b", def.Steps[0].DependsOn[0])
}

func TestParticipant_Label(t *testing.T) {
	assert.Equal(t, "Research", Participant{ID: "a", Role: "Research"}.Label())
	assert.Equal(t, "a", Participant{ID: "a"}.Label())
}

func TestInvokeError_Classification(t *testing.T) {
	cause := assert.AnError
	err := NewInvokeError("agent-1", FailureTimeout, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "agent-1")
	assert.Contains(t, err.Error(), "timeout")

	ie, ok := AsInvokeError(err)
	assert.True(t, ok)
	assert.Equal(t, FailureTimeout, ie.Kind)

	_, ok = AsInvokeError(assert.AnError)
	assert.False(t, ok)
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Code: CodeCircularDependency, Detail: "cycle a -> b -> a"},
		{Code: CodeMissingOrchestrator, Detail: "no orchestrator"},
	}
	msg := errs.Error()
	assert.Contains(t, msg, "circular_dependency")
	assert.Contains(t, msg, "missing_orchestrator")
}
