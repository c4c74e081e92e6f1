package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleai/ensemble/config"
	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/internal/testutil"
	"github.com/ensembleai/ensemble/logging"
	"github.com/ensembleai/ensemble/metrics"
	"github.com/ensembleai/ensemble/store"
)

type testEnv struct {
	engine *Engine
	store  *store.InMemory
	inv    *testutil.ScriptedInvoker
}

func newTestEnv(t *testing.T, optFns ...func(o *Options)) *testEnv {
	t.Helper()
	mem := store.NewInMemory()
	inv := testutil.NewScriptedInvoker()

	fns := append([]func(o *Options){func(o *Options) {
		o.WorkflowStore = mem
		o.RunStore = mem
		o.Invoker = inv
		o.Config = config.Config{} // no timeout wrapper, unlimited runs
	}}, optFns...)

	return &testEnv{engine: New(fns...), store: mem, inv: inv}
}

func (e *testEnv) saveWorkflow(t *testing.T, def *core.WorkflowDefinition) {
	t.Helper()
	require.NoError(t, e.store.SaveWorkflow(context.Background(), def))
}

func TestEngine_Run_SequentialCompletes(t *testing.T) {
	env := newTestEnv(t)
	env.inv.Respond("a", "first answer").Respond("b", "second answer")

	env.saveWorkflow(t, testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Participant("b", "Writing").
		Build())

	rec, err := env.engine.Run(context.Background(), "wf", "the query")
	require.NoError(t, err)

	assert.Equal(t, core.RunCompleted, rec.Status)
	assert.Equal(t, "first answer\n\nsecond answer", rec.FinalAnswer)
	assert.Equal(t, 2, rec.Outputs.Len())

	// Stats folded into the workflow.
	def, err := env.store.GetWorkflow(context.Background(), "wf")
	require.NoError(t, err)
	assert.Equal(t, int64(1), def.Stats.TotalRuns)
	assert.Equal(t, int64(1), def.Stats.SuccessfulRuns)

	// The stored record matches the returned one.
	stored, err := env.store.GetRun(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunCompleted, stored.Status)
	assert.Equal(t, rec.FinalAnswer, stored.FinalAnswer)
}

func TestEngine_Run_HierarchicalSkipsSynthesizer(t *testing.T) {
	env := newTestEnv(t)
	env.inv.Respond("lead", "orchestrated final answer")

	env.saveWorkflow(t, testutil.NewWorkflowBuilder("wf").
		Strategy(core.StrategyHierarchical).
		Orchestrator("lead", "Coordination").
		Participant("a", "Research").
		Build())

	rec, err := env.engine.Run(context.Background(), "wf", "query")
	require.NoError(t, err)
	assert.Equal(t, core.RunCompleted, rec.Status)
	assert.Equal(t, "orchestrated final answer", rec.FinalAnswer)
}

func TestEngine_Run_FailureRecordsPartialOutputs(t *testing.T) {
	env := newTestEnv(t)
	env.inv.Respond("a", "fine").
		FailWith("b", core.FailureExecution, errors.New("model exploded"))

	env.saveWorkflow(t, testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Participant("b", "Writing").
		Build())

	rec, err := env.engine.Run(context.Background(), "wf", "query")
	require.NoError(t, err, "run failure is recorded, not returned")

	assert.Equal(t, core.RunFailed, rec.Status)
	assert.Contains(t, rec.FailureDetail, "model exploded")
	assert.Equal(t, 2, rec.Outputs.Len(), "partial outputs stay visible")
	assert.Empty(t, rec.FinalAnswer)

	def, _ := env.store.GetWorkflow(context.Background(), "wf")
	assert.Equal(t, int64(1), def.Stats.TotalRuns)
	assert.Equal(t, int64(0), def.Stats.SuccessfulRuns)
}

func TestEngine_Run_ValidationFailureLeavesNoRecord(t *testing.T) {
	env := newTestEnv(t)

	def := testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		DependsOn("a", "a"). // cycle
		Build()
	env.saveWorkflow(t, def)

	_, err := env.engine.Run(context.Background(), "wf", "query")
	var verrs core.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	runs, _ := env.store.ListRuns(context.Background(), "wf")
	assert.Empty(t, runs, "validation failures never create run records")
	assert.Empty(t, env.inv.Calls())
}

func TestEngine_Run_InactiveWorkflowRejected(t *testing.T) {
	env := newTestEnv(t)
	env.saveWorkflow(t, testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Inactive().
		Build())

	_, err := env.engine.Run(context.Background(), "wf", "query")
	assert.ErrorContains(t, err, "inactive")
}

func TestEngine_Run_UnknownWorkflow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Run(context.Background(), "missing", "query")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEngine_StartRun_CompletesInBackground(t *testing.T) {
	env := newTestEnv(t)
	env.inv.Respond("a", "async answer")

	env.saveWorkflow(t, testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Build())

	runID, err := env.engine.StartRun(context.Background(), "wf", "query")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	assert.Eventually(t, func() bool {
		rec, err := env.store.GetRun(context.Background(), runID)
		return err == nil && rec.Status == core.RunCompleted
	}, 2*time.Second, 10*time.Millisecond)

	rec, _ := env.store.GetRun(context.Background(), runID)
	assert.Equal(t, "async answer", rec.FinalAnswer)
}

func TestEngine_StartRun_SurvivesCallerContextCancellation(t *testing.T) {
	env := newTestEnv(t)
	env.inv.Respond("a", "answer").Delay("a", 50*time.Millisecond)

	env.saveWorkflow(t, testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Build())

	ctx, cancel := context.WithCancel(context.Background())
	runID, err := env.engine.StartRun(ctx, "wf", "query")
	require.NoError(t, err)
	cancel() // the caller walking away must not cancel the run

	assert.Eventually(t, func() bool {
		rec, err := env.store.GetRun(context.Background(), runID)
		return err == nil && rec.Status == core.RunCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_Cancel_ActiveRun(t *testing.T) {
	env := newTestEnv(t)
	env.inv.Delay("a", 5*time.Second)

	env.saveWorkflow(t, testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Participant("b", "Writing").
		Build())

	runID, err := env.engine.StartRun(context.Background(), "wf", "query")
	require.NoError(t, err)

	// Give the run a moment to enter the first invocation.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, env.engine.Cancel(runID))

	assert.Eventually(t, func() bool {
		rec, err := env.store.GetRun(context.Background(), runID)
		return err == nil && rec.Status == core.RunCancelled
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, env.inv.CallsTo("b"), "no new dispatch after cancellation")

	// Cancelled runs still count toward totals, never toward successes.
	def, _ := env.store.GetWorkflow(context.Background(), "wf")
	assert.Equal(t, int64(1), def.Stats.TotalRuns)
	assert.Equal(t, int64(0), def.Stats.SuccessfulRuns)
}

func TestEngine_Cancel_UnknownRun(t *testing.T) {
	env := newTestEnv(t)
	assert.False(t, env.engine.Cancel("never-started"))
}

func TestEngine_ConcurrencyLimitBlocksAcquire(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Config = config.Config{MaxConcurrentRuns: 1}
	})
	env.inv.Delay("a", 200*time.Millisecond)

	env.saveWorkflow(t, testutil.NewWorkflowBuilder("wf").
		Participant("a", "Research").
		Build())

	runID, err := env.engine.StartRun(context.Background(), "wf", "query")
	require.NoError(t, err)

	// The single slot is taken; a second run cannot start before the
	// waiting context gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = env.engine.Run(ctx, "wf", "query")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Eventually(t, func() bool {
		rec, err := env.store.GetRun(context.Background(), runID)
		return err == nil && rec.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDefaultLogger_FollowsConfig(t *testing.T) {
	assert.IsType(t, logging.NoOpLogger{}, defaultLogger(config.Config{}))

	t.Setenv("ENSEMBLE_LOG_LEVEL", "debug")
	t.Setenv("ENSEMBLE_LOG_FORMAT", "text")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.IsType(t, &logging.SlogAdapter{}, defaultLogger(cfg))
}

// failingUpdateStore accepts run creation but rejects every terminal
// write.
type failingUpdateStore struct {
	*store.InMemory
}

func (s *failingUpdateStore) UpdateRun(context.Context, *core.RunRecord) error {
	return errors.New("write rejected")
}

func TestEngine_ActiveRunsGaugeFallsWhenRecordingFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	mem := store.NewInMemory()
	inv := testutil.NewScriptedInvoker().Respond("a", "answer")

	e := New(func(o *Options) {
		o.Config = config.Config{}
		o.WorkflowStore = mem
		o.RunStore = &failingUpdateStore{InMemory: mem}
		o.Invoker = inv
		o.Metrics = metrics.NewCollectorWith(reg)
	})

	require.NoError(t, mem.SaveWorkflow(context.Background(),
		testutil.NewWorkflowBuilder("wf").Participant("a", "Research").Build()))

	_, err := e.Run(context.Background(), "wf", "query")
	require.NoError(t, err)

	expected := strings.NewReader(`
# HELP ensemble_active_runs Number of runs currently executing
# TYPE ensemble_active_runs gauge
ensemble_active_runs 0
`)
	assert.NoError(t, promtest.GatherAndCompare(reg, expected, "ensemble_active_runs"))
}

func TestEngine_DefaultsToEmptyInvoker(t *testing.T) {
	mem := store.NewInMemory()
	e := New(func(o *Options) {
		o.WorkflowStore = mem
		o.RunStore = mem
	})
	require.NoError(t, mem.SaveWorkflow(context.Background(),
		testutil.NewWorkflowBuilder("wf").Participant("a", "Research").Build()))

	rec, err := e.Run(context.Background(), "wf", "query")
	require.NoError(t, err)
	assert.Equal(t, core.RunFailed, rec.Status, "unregistered participants are unavailable")
	assert.Contains(t, rec.FailureDetail, "unavailable")
}
