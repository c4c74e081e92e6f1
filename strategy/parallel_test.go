package strategy

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/internal/testutil"
)

func TestParallelExecutor_AllParticipantsReceiveOriginalQuery(t *testing.T) {
	inv := testutil.NewScriptedInvoker()

	def := testutil.NewWorkflowBuilder("wf").
		Strategy(core.StrategyParallel).
		Participant("a", "One").
		Participant("b", "Two").
		Participant("c", "Three").
		Build()

	exec, _ := For(core.StrategyParallel, Deps{Invoker: inv, Comms: &capturedComms{}})
	res, err := exec.Execute(context.Background(), def, "run-1", "the query")
	assert.NoError(t, err)
	assert.Equal(t, 3, res.Outputs.Len())

	for _, call := range inv.Calls() {
		assert.Equal(t, "the query", call.Input, "no pipelining under parallel")
		assert.Empty(t, call.PriorIDs, "no prior context under parallel")
	}

	ids := res.Outputs.IDs()
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestParallelExecutor_BoundsInFlightInvocations(t *testing.T) {
	probe := testutil.NewConcurrencyProbe(testutil.NewScriptedInvoker())

	def := testutil.NewWorkflowBuilder("wf").
		Strategy(core.StrategyParallel).
		Participant("a", "One").
		Participant("b", "Two").
		Participant("c", "Three").
		Participant("d", "Four").
		Participant("e", "Five").
		MaxParallel(2).
		Build()

	exec, _ := For(core.StrategyParallel, Deps{Invoker: probe, Comms: &capturedComms{}})
	res, err := exec.Execute(context.Background(), def, "run-1", "query")
	assert.NoError(t, err)
	assert.Equal(t, 5, res.Outputs.Len())
	assert.LessOrEqual(t, probe.MaxInFlight(), 2)
	assert.Equal(t, 2, probe.MaxInFlight(), "full batches overlap")
}

func TestParallelExecutor_PartialFailurePropagatesResults(t *testing.T) {
	inv := testutil.NewScriptedInvoker().
		Respond("a", "fine").
		FailWith("b", core.FailureExecution, errors.New("boom"))

	def := testutil.NewWorkflowBuilder("wf").
		Strategy(core.StrategyParallel).
		Participant("a", "One").
		Participant("b", "Two").
		MaxParallel(2).
		Build()

	exec, _ := For(core.StrategyParallel, Deps{Invoker: inv, Comms: &capturedComms{}})
	res, err := exec.Execute(context.Background(), def, "run-1", "query")

	// One of two non-optional members failed; the batch still succeeds.
	assert.NoError(t, err)
	ok, _ := res.Outputs.Get("a")
	assert.True(t, ok.Succeeded)
	failed, _ := res.Outputs.Get("b")
	assert.False(t, failed.Succeeded)
	assert.NotEmpty(t, failed.ErrorDetail)
}

func TestParallelExecutor_BatchFailsWhenAllNonOptionalFail(t *testing.T) {
	inv := testutil.NewScriptedInvoker().
		FailWith("a", core.FailureExecution, errors.New("boom a")).
		FailWith("b", core.FailureTimeout, errors.New("boom b")).
		Respond("opt", "fine")

	def := testutil.NewWorkflowBuilder("wf").
		Strategy(core.StrategyParallel).
		Participant("a", "One").
		Participant("b", "Two").
		Participant("opt", "Extra", testutil.Optional()).
		MaxParallel(3).
		Build()

	exec, _ := For(core.StrategyParallel, Deps{Invoker: inv, Comms: &capturedComms{}})
	res, err := exec.Execute(context.Background(), def, "run-1", "query")

	assert.Error(t, err)
	// All three were attempted; failures stay visible in the outputs.
	assert.Equal(t, 3, res.Outputs.Len())
}

func TestParallelExecutor_LaterBatchNotDispatchedAfterFailure(t *testing.T) {
	inv := testutil.NewScriptedInvoker().
		FailWith("a", core.FailureExecution, errors.New("boom"))

	def := testutil.NewWorkflowBuilder("wf").
		Strategy(core.StrategyParallel).
		Participant("a", "One").
		Participant("b", "Two").
		MaxParallel(1).
		Build()

	exec, _ := For(core.StrategyParallel, Deps{Invoker: inv, Comms: &capturedComms{}})
	_, err := exec.Execute(context.Background(), def, "run-1", "query")

	assert.Error(t, err)
	assert.Equal(t, 0, inv.CallsTo("b"))
}

func TestParallelExecutor_NoCommunicationEntries(t *testing.T) {
	comms := &capturedComms{}

	def := testutil.NewWorkflowBuilder("wf").
		Strategy(core.StrategyParallel).
		Participant("a", "One").
		Participant("b", "Two").
		Build()

	exec, _ := For(core.StrategyParallel, Deps{Invoker: testutil.NewScriptedInvoker(), Comms: comms})
	_, err := exec.Execute(context.Background(), def, "run-1", "query")
	assert.NoError(t, err)
	assert.Empty(t, comms.all(), "parallel participants do not see each other")
}

func TestParallelExecutor_CancellationBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := testutil.NewScriptedInvoker()
	def := testutil.NewWorkflowBuilder("wf").
		Strategy(core.StrategyParallel).
		Participant("a", "One").
		Build()

	exec, _ := For(core.StrategyParallel, Deps{Invoker: inv, Comms: &capturedComms{}})
	_, err := exec.Execute(ctx, def, "run-1", "query")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, inv.Calls())
}
