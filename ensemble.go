// Package ensemble provides a high-level façade over the orchestration
// engine and its services (workflow storage, run records, invocation and
// logging) enabling rapid construction of multi-agent workflow systems.
// Most applications interact with this package by:
//  1. Creating an Ensemble via New() (optionally overriding default in-memory services)
//  2. Registering workflow definitions (structs, JSON or YAML documents)
//  3. Starting runs asynchronously (StartRun) or synchronously (Run)
//
// The façade delegates orchestration to engine.Engine while keeping setup
// and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply durable
// store implementations, a configured invoker and a structured logger.
package ensemble

import (
	"context"

	"github.com/ensembleai/ensemble/config"
	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/engine"
	"github.com/ensembleai/ensemble/logging"
	"github.com/ensembleai/ensemble/metrics"
	"github.com/ensembleai/ensemble/store"
	"github.com/ensembleai/ensemble/workflow"
)

// Options configures the Ensemble instance.
type Options struct {
	// Config contains operational parameters (invocation timeout, run
	// concurrency, fallback depth).
	Config config.Config

	// Stores (default to a shared in-memory implementation if not provided)
	WorkflowStore core.WorkflowStore
	RunStore      core.RunStore

	// Invoker is the seam to agent execution. When nil the engine builds
	// an empty model invoker from Config; register models on a
	// ModelInvoker and supply it here before starting runs.
	Invoker core.Invoker

	// Logger. When nil the engine builds one from Config.LogLevel and
	// Config.LogFormat.
	Logger logging.Logger

	// Metrics is the optional Prometheus collector; nil disables
	// instrumentation.
	Metrics *metrics.Collector
}

// Ensemble is the high-level façade aggregating the engine and its stores.
type Ensemble struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new Ensemble instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Ensemble {
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

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.Config
		o.WorkflowStore = opts.WorkflowStore
		o.RunStore = opts.RunStore
		o.Invoker = opts.Invoker
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	return &Ensemble{opts: opts, engine: e}
}

// RegisterWorkflow validates and persists a workflow definition.
func (e *Ensemble) RegisterWorkflow(ctx context.Context, def *core.WorkflowDefinition) error {
	if verrs := workflow.Validate(def); len(verrs) > 0 {
		return core.ValidationErrors(verrs)
	}
	return e.opts.WorkflowStore.SaveWorkflow(ctx, def)
}

// RegisterWorkflowJSON parses, validates and persists a JSON workflow
// document, returning the stored definition.
func (e *Ensemble) RegisterWorkflowJSON(ctx context.Context, data []byte) (*core.WorkflowDefinition, error) {
	def, err := workflow.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	if err := e.opts.WorkflowStore.SaveWorkflow(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// RegisterWorkflowYAML parses, validates and persists a YAML workflow
// document, returning the stored definition.
func (e *Ensemble) RegisterWorkflowYAML(ctx context.Context, data []byte) (*core.WorkflowDefinition, error) {
	def, err := workflow.ParseYAML(data)
	if err != nil {
		return nil, err
	}
	if err := e.opts.WorkflowStore.SaveWorkflow(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// Workflow returns the stored definition with the given ID.
func (e *Ensemble) Workflow(ctx context.Context, id string) (*core.WorkflowDefinition, error) {
	return e.opts.WorkflowStore.GetWorkflow(ctx, id)
}

// StartRun starts an asynchronous run of the workflow against the query
// and returns the run ID immediately. Progress is observed through GetRun;
// cancellation goes through Cancel.
func (e *Ensemble) StartRun(ctx context.Context, workflowID, query string) (string, error) {
	return e.engine.StartRun(ctx, workflowID, query)
}

// Run executes a workflow synchronously to its terminal state and returns
// the finished run record.
func (e *Ensemble) Run(ctx context.Context, workflowID, query string) (*core.RunRecord, error) {
	return e.engine.Run(ctx, workflowID, query)
}

// Cancel requests cancellation of an active run. Returns false when the
// run is not active.
func (e *Ensemble) Cancel(runID string) bool {
	return e.engine.Cancel(runID)
}

// GetRun returns the run record with the given ID.
func (e *Ensemble) GetRun(ctx context.Context, runID string) (*core.RunRecord, error) {
	return e.opts.RunStore.GetRun(ctx, runID)
}

// ListRuns returns all run records for a workflow.
func (e *Ensemble) ListRuns(ctx context.Context, workflowID string) ([]*core.RunRecord, error) {
	return e.opts.RunStore.ListRuns(ctx, workflowID)
}

// Communications returns the append-only communication log of a run.
func (e *Ensemble) Communications(ctx context.Context, runID string) ([]core.CommunicationEntry, error) {
	return e.opts.RunStore.ListCommunications(ctx, runID)
}
