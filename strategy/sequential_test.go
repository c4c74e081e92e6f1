package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/internal/testutil"
)

func TestSequentialExecutor_PipelinesAnswers(t *testing.T) {
	inv := testutil.NewScriptedInvoker().
		Respond("a", "answer from a").
		Respond("b", "answer from b").
		Respond("c", "final answer")
	comms := &capturedComms{}

	def := testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Participant("b", "Analysis").
		Participant("c", "Writing").
		Build()

	exec, err := For(core.StrategySequential, Deps{Invoker: inv, Comms: comms})
	assert.NoError(t, err)

	res, err := exec.Execute(context.Background(), def, "run-1", "original query")
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, res.Outputs.IDs())
	assert.False(t, res.Synthesized)

	// Each stage received the previous stage's answer, not the original query.
	calls := inv.Calls()
	assert.Equal(t, "original query", calls[0].Input)
	assert.Equal(t, "answer from a", calls[1].Input)
	assert.Equal(t, "answer from b", calls[2].Input)
}

func TestSequentialExecutor_RecordsHandoffs(t *testing.T) {
	inv := testutil.NewScriptedInvoker().
		Respond("a", "from a").
		Respond("b", "from b")
	comms := &capturedComms{}

	def := testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Participant("b", "Writing").
		Build()

	exec, _ := For(core.StrategySequential, Deps{Invoker: inv, Comms: comms})
	_, err := exec.Execute(context.Background(), def, "run-1", "query")
	assert.NoError(t, err)

	entries := comms.all()
	assert.Len(t, entries, 1, "first step has no predecessor")
	assert.Equal(t, "a", entries[0].From)
	assert.Equal(t, "b", entries[0].To)
	assert.Equal(t, core.MessageResponse, entries[0].Kind)
	assert.Equal(t, "from a", entries[0].Content)
}

func TestSequentialExecutor_NonOptionalFailureAborts(t *testing.T) {
	cause := errors.New("model exploded")
	inv := testutil.NewScriptedInvoker().
		Respond("a", "ok").
		FailWith("b", core.FailureExecution, cause)

	def := testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Participant("b", "Analysis").
		Participant("c", "Writing").
		Build()

	exec, _ := For(core.StrategySequential, Deps{Invoker: inv, Comms: &capturedComms{}})
	res, err := exec.Execute(context.Background(), def, "run-1", "query")

	assert.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, inv.CallsTo("c"), "steps after the failure are not invoked")

	// Partial outputs are retained, including the failed one.
	assert.Equal(t, []string{"a", "b"}, res.Outputs.IDs())
	failed, _ := res.Outputs.Get("b")
	assert.False(t, failed.Succeeded)
	assert.NotEmpty(t, failed.ErrorDetail)
}

func TestSequentialExecutor_OptionalFailureKeepsPipelineInput(t *testing.T) {
	inv := testutil.NewScriptedInvoker().
		Respond("a", "from a").
		FailWith("b", core.FailureExecution, errors.New("boom")).
		Respond("c", "from c")

	def := testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Participant("b", "Analysis", testutil.Optional()).
		Participant("c", "Writing").
		Build()

	exec, _ := For(core.StrategySequential, Deps{Invoker: inv, Comms: &capturedComms{}})
	res, err := exec.Execute(context.Background(), def, "run-1", "query")
	assert.NoError(t, err)

	// c receives a's answer because the optional failure did not advance
	// the pipeline.
	calls := inv.Calls()
	assert.Equal(t, "from a", calls[2].Input)
	assert.Equal(t, []string{"a", "b", "c"}, res.Outputs.IDs())
}

func TestSequentialExecutor_TieBreakByDeclarationOrder(t *testing.T) {
	inv := testutil.NewScriptedInvoker()

	def := testutil.NewWorkflowBuilder("wf").
		Participant("first", "One").
		Participant("second", "Two").
		Build()
	// Force equal execution orders.
	def.Steps[0].ExecutionOrder = 1
	def.Steps[1].ExecutionOrder = 1

	exec, _ := For(core.StrategySequential, Deps{Invoker: inv, Comms: &capturedComms{}})
	res, err := exec.Execute(context.Background(), def, "run-1", "query")
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, res.Outputs.IDs())
}

func TestSequentialExecutor_CancellationStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := testutil.NewScriptedInvoker()
	def := testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Build()

	exec, _ := For(core.StrategySequential, Deps{Invoker: inv, Comms: &capturedComms{}})
	_, err := exec.Execute(ctx, def, "run-1", "query")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, inv.Calls())
}
