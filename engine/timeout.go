package engine

import (
	"context"
	"time"

	"github.com/ensembleai/ensemble/core"
)

// timeoutInvoker wraps every invocation with the engine's per-step
// timeout, independent of whatever bound the underlying invoker applies
// itself. A tripped deadline surfaces as a participant failure, never as
// an engine-fatal error.
type timeoutInvoker struct {
	inner   core.Invoker
	timeout time.Duration
}

// Invoke implements core.Invoker.
func (t timeoutInvoker) Invoke(ctx context.Context, participantID, input string, prior *core.Outputs) (core.Output, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Invoke(ctx, participantID, input, prior)
}
