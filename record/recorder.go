package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
)

// Recorder creates and transitions run records and folds terminal runs
// into the owning workflow's rolling statistics. Safe for concurrent use
// across runs; a per-workflow mutex makes each stats update a single
// serialized read-modify-write so concurrent runs of the same workflow
// never lose updates.
type Recorder struct {
	workflows core.WorkflowStore
	runs      core.RunStore
	logger    logging.Logger
	now       func() time.Time

	statsMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Options configures a Recorder.
type Options struct {
	Logger logging.Logger

	// Now overrides the clock, used by tests to pin durations.
	Now func() time.Time
}

// New constructs a Recorder over the given stores.
func New(workflows core.WorkflowStore, runs core.RunStore, optFns ...func(o *Options)) *Recorder {
	opts := Options{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Recorder{
		workflows: workflows,
		runs:      runs,
		logger:    opts.Logger,
		now:       opts.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Begin creates a run record already in Running state; the Pending to
// Running transition is atomic with creation. The record is persisted
// before being handed to the engine.
func (r *Recorder) Begin(ctx context.Context, workflowID, query string) (*core.RunRecord, error) {
	rec := &core.RunRecord{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Query:      query,
		Status:     core.RunRunning,
		Outputs:    core.NewOutputs(),
		StartedAt:  r.now(),
	}
	if err := r.runs.CreateRun(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}
	r.logger.Info("run started", "run_id", rec.ID, "workflow_id", workflowID)
	return rec, nil
}

// Complete transitions the record to Completed with the final answer and
// gathered outputs, persists it and updates the workflow stats.
func (r *Recorder) Complete(ctx context.Context, rec *core.RunRecord, finalAnswer string, outputs *core.Outputs) error {
	if err := r.finish(ctx, rec, core.RunCompleted, outputs); err != nil {
		return err
	}
	rec.FinalAnswer = finalAnswer
	if err := r.runs.UpdateRun(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist completed run: %w", err)
	}
	r.logger.Info("run completed", "run_id", rec.ID, "duration", rec.Duration)
	return r.updateStats(ctx, rec.WorkflowID, rec.Duration, true)
}

// Fail transitions the record to Failed carrying whatever partial outputs
// were gathered. failureDetail must name the first hard failure; partial
// results remain visible for diagnosis. The workflow's total run count and
// average duration are still updated, but not its success count.
func (r *Recorder) Fail(ctx context.Context, rec *core.RunRecord, failureDetail string, outputs *core.Outputs) error {
	if failureDetail == "" {
		failureDetail = "unknown failure"
	}
	if err := r.finish(ctx, rec, core.RunFailed, outputs); err != nil {
		return err
	}
	rec.FailureDetail = failureDetail
	if err := r.runs.UpdateRun(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist failed run: %w", err)
	}
	r.logger.Warn("run failed", "run_id", rec.ID, "detail", failureDetail)
	return r.updateStats(ctx, rec.WorkflowID, rec.Duration, false)
}

// Cancel transitions the record to Cancelled. Like Fail it counts toward
// the workflow's totals and average duration without counting as success.
func (r *Recorder) Cancel(ctx context.Context, rec *core.RunRecord, outputs *core.Outputs) error {
	if err := r.finish(ctx, rec, core.RunCancelled, outputs); err != nil {
		return err
	}
	if err := r.runs.UpdateRun(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist cancelled run: %w", err)
	}
	r.logger.Info("run cancelled", "run_id", rec.ID)
	return r.updateStats(ctx, rec.WorkflowID, rec.Duration, false)
}

// LogCommunication appends one inter-agent communication entry. The log
// is append-only; nothing in this core ever mutates or deletes entries.
func (r *Recorder) LogCommunication(ctx context.Context, runID, from, to string, kind core.MessageKind, content string) error {
	return r.runs.AppendCommunication(ctx, core.CommunicationEntry{
		RunID:     runID,
		From:      from,
		To:        to,
		Kind:      kind,
		Content:   content,
		Timestamp: r.now(),
	})
}

// finish applies the shared terminal bookkeeping: state machine check,
// outputs, completion time and duration.
func (r *Recorder) finish(ctx context.Context, rec *core.RunRecord, status core.RunStatus, outputs *core.Outputs) error {
	_ = ctx
	if !rec.Status.CanTransition(status) {
		return core.NewEngineError("record", "illegal run transition %s -> %s for run %s",
			rec.Status, status, rec.ID)
	}
	rec.Status = status
	if outputs != nil {
		rec.Outputs = outputs
	}
	rec.CompletedAt = r.now()
	rec.Duration = rec.CompletedAt.Sub(rec.StartedAt)
	return nil
}

// updateStats folds one terminal run into the owning workflow's rolling
// statistics under the per-workflow lock.
func (r *Recorder) updateStats(ctx context.Context, workflowID string, duration time.Duration, success bool) error {
	lock := r.workflowLock(workflowID)
	lock.Lock()
	defer lock.Unlock()

	def, err := r.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to load workflow for stats update: %w", err)
	}
	def.Stats.RecordRun(duration, success)
	if err := r.workflows.SaveWorkflow(ctx, def); err != nil {
		return fmt.Errorf("failed to persist workflow stats: %w", err)
	}
	return nil
}

// workflowLock returns the mutex serializing stats updates for one
// workflow, creating it on first use.
func (r *Recorder) workflowLock(workflowID string) *sync.Mutex {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	lock, ok := r.locks[workflowID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[workflowID] = lock
	}
	return lock
}
