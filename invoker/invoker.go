package invoker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ensembleai/ensemble/config"
	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
	"github.com/ensembleai/ensemble/model"
)

// contextExcerptLen bounds how much of each prior output is embedded in a
// downstream prompt.
const contextExcerptLen = 200

// AgentOptions configures one registered participant.
type AgentOptions struct {
	// Instructions is the system-level behavior description passed to the
	// backing model on every call.
	Instructions string

	// Disabled marks the participant unavailable without unregistering it.
	Disabled bool
}

// Options configures a ModelInvoker.
type Options struct {
	// Timeout bounds each individual model call. Zero disables the bound;
	// production configurations should always set one.
	Timeout time.Duration

	// MaxAttempts bounds the total model calls per invocation across the
	// primary model and the fallback chain. The chain is walked with an
	// explicit counter, never recursion. Values below 1 are treated as 1.
	MaxAttempts int

	// Fallbacks are alternate models tried in order when the primary
	// model fails.
	Fallbacks []model.Model

	Logger logging.Logger
}

// ModelInvoker implements core.Invoker over a registry of participant
// models. Safe for concurrent use; the Parallel strategy invokes many
// distinct participants at once.
type ModelInvoker struct {
	mu     sync.RWMutex
	agents map[string]agentEntry
	opts   Options
}

type agentEntry struct {
	model        model.Model
	instructions string
	disabled     bool
}

// New constructs an empty ModelInvoker.
func New(optFns ...func(o *Options)) *ModelInvoker {
	opts := Options{
		Timeout:     2 * time.Minute,
		MaxAttempts: 3,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &ModelInvoker{agents: make(map[string]agentEntry), opts: opts}
}

// FromConfig constructs a ModelInvoker tuned by the environment
// configuration: cfg.FallbackAttempts bounds the fallback chain and
// cfg.InvokeTimeout bounds each model call. Further options apply on top.
func FromConfig(cfg config.Config, optFns ...func(o *Options)) *ModelInvoker {
	base := func(o *Options) {
		o.Timeout = cfg.InvokeTimeout
		o.MaxAttempts = cfg.FallbackAttempts
	}
	return New(append([]func(o *Options){base}, optFns...)...)
}

// Register makes a participant invokable, replacing any previous
// registration for the same ID.
func (v *ModelInvoker) Register(participantID string, m model.Model, optFns ...func(o *AgentOptions)) {
	var ao AgentOptions
	for _, fn := range optFns {
		fn(&ao)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.agents[participantID] = agentEntry{model: m, instructions: ao.Instructions, disabled: ao.Disabled}
}

// SetDisabled toggles a participant's availability. Unknown IDs are a
// no-op.
func (v *ModelInvoker) SetDisabled(participantID string, disabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if entry, ok := v.agents[participantID]; ok {
		entry.disabled = disabled
		v.agents[participantID] = entry
	}
}

// Invoke implements core.Invoker.
func (v *ModelInvoker) Invoke(ctx context.Context, participantID, input string, prior *core.Outputs) (core.Output, error) {
	v.mu.RLock()
	entry, ok := v.agents[participantID]
	v.mu.RUnlock()

	if !ok {
		return core.Output{}, core.NewInvokeError(participantID, core.FailureUnavailable,
			fmt.Errorf("participant is not registered"))
	}
	if entry.disabled {
		return core.Output{}, core.NewInvokeError(participantID, core.FailureUnavailable,
			fmt.Errorf("participant is disabled"))
	}

	req := model.Request{
		Instructions: entry.instructions,
		Input:        formatInput(input, prior),
	}

	candidates := append([]model.Model{entry.model}, v.opts.Fallbacks...)

	var lastErr error
	attempts := 0
	for _, m := range candidates {
		if attempts >= v.opts.MaxAttempts {
			break
		}
		attempts++

		resp, err := v.complete(ctx, m, req)
		if err == nil {
			return core.Output{ParticipantID: participantID, Text: resp.Text, Succeeded: true}, nil
		}
		lastErr = err
		v.opts.Logger.Warn("model call failed",
			"participant", participantID, "model", m.Info().Name, "attempt", attempts, "error", err)

		// The parent being done means the run itself was cancelled or
		// timed out; trying further fallbacks would be pointless.
		if ctx.Err() != nil {
			break
		}
	}

	kind := core.FailureExecution
	if errors.Is(lastErr, context.DeadlineExceeded) {
		kind = core.FailureTimeout
	}
	return core.Output{}, core.NewInvokeError(participantID, kind,
		fmt.Errorf("all %d attempts failed: %w", attempts, lastErr))
}

// complete runs one model call under the per-call timeout.
func (v *ModelInvoker) complete(ctx context.Context, m model.Model, req model.Request) (model.Response, error) {
	if v.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.opts.Timeout)
		defer cancel()
	}
	return m.Complete(ctx, req)
}

// formatInput prepends prior-participant context to the input. Each prior
// output is labeled by participant and truncated to a short excerpt; the
// underlying agents only need the gist of upstream work, not full
// transcripts.
func formatInput(input string, prior *core.Outputs) string {
	if prior == nil || prior.Len() == 0 {
		return input
	}

	var b strings.Builder
	b.WriteString("Context from previous agents:\n")
	for _, out := range prior.All() {
		if !out.Succeeded {
			continue
		}
		excerpt := out.Text
		if len(excerpt) > contextExcerptLen {
			excerpt = excerpt[:contextExcerptLen]
		}
		fmt.Fprintf(&b, "Agent %s: %s...\n", out.ParticipantID, excerpt)
	}
	b.WriteString("\n")
	b.WriteString(input)
	return b.String()
}
