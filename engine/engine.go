package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ensembleai/ensemble/config"
	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/invoker"
	"github.com/ensembleai/ensemble/logging"
	"github.com/ensembleai/ensemble/metrics"
	"github.com/ensembleai/ensemble/record"
	"github.com/ensembleai/ensemble/store"
	"github.com/ensembleai/ensemble/strategy"
	"github.com/ensembleai/ensemble/synthesis"
	"github.com/ensembleai/ensemble/workflow"
)

// Options configures an Engine instance using the functional options
// pattern. All services have in-memory defaults suitable for development
// and testing; production deployments supply durable stores, a real
// invoker and a structured logger.
type Options struct {
	// Config contains operational parameters (timeouts, concurrency).
	Config config.Config

	// WorkflowStore persists workflow definitions and stats.
	// Defaults to an in-memory implementation if not provided.
	WorkflowStore core.WorkflowStore

	// RunStore persists run records and the communication log.
	// Defaults to an in-memory implementation if not provided.
	RunStore core.RunStore

	// Invoker is the seam to the external agent execution service.
	// Defaults to an empty model invoker, which reports every
	// participant unavailable until models are registered.
	Invoker core.Invoker

	// Logger provides structured logging. Defaults to NoOp if nil.
	Logger logging.Logger

	// Metrics is the optional Prometheus collector; nil disables
	// instrumentation.
	Metrics *metrics.Collector
}

// Engine is the orchestration facade. It is safe for concurrent use;
// each run is driven by one goroutine that exclusively owns its
// RunRecord.
type Engine struct {
	cfg       config.Config
	workflows core.WorkflowStore
	runs      core.RunStore
	invoker   core.Invoker
	recorder  *record.Recorder
	synth     *synthesis.Synthesizer
	logger    logging.Logger
	metrics   *metrics.Collector

	// sem bounds concurrently executing runs; nil means unlimited.
	sem chan struct{}

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New creates an Engine with sensible defaults and optional overrides.
// Unset services are filled in from the configuration: the default
// invoker's fallback chain is bounded by Config.FallbackAttempts and the
// default logger follows Config.LogLevel/LogFormat.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{Config: config.Default()}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.WorkflowStore == nil || opts.RunStore == nil {
		mem := store.NewInMemory()
		if opts.WorkflowStore == nil {
			opts.WorkflowStore = mem
		}
		if opts.RunStore == nil {
			opts.RunStore = mem
		}
	}
	if opts.Logger == nil {
		opts.Logger = defaultLogger(opts.Config)
	}
	if opts.Invoker == nil {
		opts.Invoker = invoker.FromConfig(opts.Config, func(o *invoker.Options) {
			// The engine applies the invoke timeout itself; a second
			// bound inside the invoker would shadow it.
			o.Timeout = 0
			o.Logger = opts.Logger
		})
	}

	inv := opts.Invoker
	if opts.Config.InvokeTimeout > 0 {
		inv = timeoutInvoker{inner: inv, timeout: opts.Config.InvokeTimeout}
	}

	var sem chan struct{}
	if opts.Config.MaxConcurrentRuns > 0 {
		sem = make(chan struct{}, opts.Config.MaxConcurrentRuns)
	}

	recorder := record.New(opts.WorkflowStore, opts.RunStore, func(o *record.Options) {
		o.Logger = opts.Logger
	})

	return &Engine{
		cfg:        opts.Config,
		workflows:  opts.WorkflowStore,
		runs:       opts.RunStore,
		invoker:    inv,
		recorder:   recorder,
		synth:      synthesis.New(inv, func(o *synthesis.Options) { o.Logger = opts.Logger }),
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		sem:        sem,
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// defaultLogger builds the logger used when none is supplied. A zero
// configuration stays silent; a loaded one gets structured slog output.
func defaultLogger(cfg config.Config) logging.Logger {
	if cfg.LogLevel == "" && cfg.LogFormat == "" {
		return logging.NoOpLogger{}
	}
	return logging.NewSlogLogger(cfg.LogLevel, cfg.LogFormat)
}

// Recorder exposes the run recorder, mainly for read models and tests.
func (e *Engine) Recorder() *record.Recorder { return e.recorder }

// StartRun validates the workflow, creates the run record and drives the
// run on a background goroutine, returning the run ID immediately. The
// caller's context only governs validation and record creation; the run
// itself is cancelled via Cancel, not by the caller's context.
func (e *Engine) StartRun(ctx context.Context, workflowID, query string) (string, error) {
	if err := e.acquire(ctx); err != nil {
		return "", err
	}

	def, rec, err := e.prepare(ctx, workflowID, query)
	if err != nil {
		e.release()
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.mu.Lock()
	e.activeRuns[rec.ID] = cancel
	e.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			e.mu.Lock()
			delete(e.activeRuns, rec.ID)
			e.mu.Unlock()
			e.release()
		}()
		e.drive(runCtx, def, rec, query)
	}()

	return rec.ID, nil
}

// Run executes a workflow synchronously to its terminal state and returns
// the finished run record. Cancellation flows through ctx.
func (e *Engine) Run(ctx context.Context, workflowID, query string) (*core.RunRecord, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.release()

	def, rec, err := e.prepare(ctx, workflowID, query)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	e.activeRuns[rec.ID] = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.activeRuns, rec.ID)
		e.mu.Unlock()
	}()

	e.drive(runCtx, def, rec, query)
	return rec, nil
}

// Cancel requests cancellation of an active run. The engine stops
// dispatching new invocations at the next step or batch boundary;
// in-flight invocations finish per the invoker's own cancellation
// contract. Returns false when the run is not active.
func (e *Engine) Cancel(runID string) bool {
	e.mu.RLock()
	cancel, ok := e.activeRuns[runID]
	e.mu.RUnlock()
	if ok {
		cancel()
	}
	return ok
}

// prepare loads and validates the workflow, then creates the run record
// already in Running state. Inactive workflows and validation failures
// abort with no RunRecord side effects.
func (e *Engine) prepare(ctx context.Context, workflowID, query string) (*core.WorkflowDefinition, *core.RunRecord, error) {
	def, err := e.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	if !def.IsActive {
		return nil, nil, fmt.Errorf("workflow %s is inactive", workflowID)
	}
	if verrs := workflow.Validate(def); len(verrs) > 0 {
		return nil, nil, core.ValidationErrors(verrs)
	}

	rec, err := e.recorder.Begin(ctx, def.ID, query)
	if err != nil {
		return nil, nil, err
	}
	return def, rec, nil
}

// drive executes a prepared run to its terminal state, mutating rec in
// place. All record writes stay on this goroutine.
func (e *Engine) drive(ctx context.Context, def *core.WorkflowDefinition, rec *core.RunRecord, query string) {
	e.metrics.RunStarted(string(def.Strategy))
	e.logger.Info("dispatching run",
		"run_id", rec.ID, "workflow_id", def.ID, "strategy", def.Strategy)

	exec, err := strategy.For(def.Strategy, strategy.Deps{
		Invoker: e.invoker,
		Comms:   e.recorder,
		Logger:  e.logger,
	})
	if err != nil {
		e.finishFailed(ctx, def, rec, err, nil)
		return
	}

	res, err := exec.Execute(ctx, def, rec.ID, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			e.finishCancelled(ctx, def, rec, res.Outputs)
			return
		}
		e.finishFailed(ctx, def, rec, err, res.Outputs)
		return
	}

	finalAnswer := res.FinalAnswer
	if !res.Synthesized {
		finalAnswer, err = e.synth.Synthesize(ctx, def.SynthesisPolicy, res.Outputs, def)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				e.finishCancelled(ctx, def, rec, res.Outputs)
				return
			}
			e.finishFailed(ctx, def, rec, err, res.Outputs)
			return
		}
	}

	// The finish metric fires even when the record write fails; the
	// active-run gauge must come back down for every started run.
	if err := e.recorder.Complete(ctx, rec, finalAnswer, res.Outputs); err != nil {
		e.logger.Error("failed to record completion", "run_id", rec.ID, "error", err)
	}
	e.metrics.RunFinished(string(def.Strategy), string(core.RunCompleted), rec.Duration)
}

func (e *Engine) finishFailed(ctx context.Context, def *core.WorkflowDefinition, rec *core.RunRecord, cause error, outputs *core.Outputs) {
	if err := e.recorder.Fail(ctx, rec, cause.Error(), outputs); err != nil {
		e.logger.Error("failed to record failure", "run_id", rec.ID, "error", err)
	}
	e.metrics.RunFinished(string(def.Strategy), string(core.RunFailed), rec.Duration)
}

func (e *Engine) finishCancelled(ctx context.Context, def *core.WorkflowDefinition, rec *core.RunRecord, outputs *core.Outputs) {
	// Recording must survive the cancelled run context.
	ctx = context.WithoutCancel(ctx)
	if err := e.recorder.Cancel(ctx, rec, outputs); err != nil {
		e.logger.Error("failed to record cancellation", "run_id", rec.ID, "error", err)
	}
	e.metrics.RunFinished(string(def.Strategy), string(core.RunCancelled), rec.Duration)
}

// acquire takes one run-worker slot, honoring ctx while waiting.
func (e *Engine) acquire(ctx context.Context) error {
	if e.sem == nil {
		return nil
	}
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() {
	if e.sem != nil {
		<-e.sem
	}
}
