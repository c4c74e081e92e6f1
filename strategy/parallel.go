package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/ensembleai/ensemble/core"
)

// parallelExecutor fans out all steps concurrently with the original query
// as every participant's input (no pipelining), processing batches of
// MaxParallelAgents sequentially. Within a batch invocations fan out and
// join; batch N+1 never starts before batch N fully joins, so at most
// MaxParallelAgents invocations are in flight at once.
type parallelExecutor struct {
	base
}

// Execute implements Executor.
//
// Outputs are recorded in completion order, not call order. A batch fails
// the run only when every non-optional member of that batch fails;
// otherwise partial results propagate. No communication entries are
// recorded: parallel participants do not see each other.
func (e *parallelExecutor) Execute(ctx context.Context, def *core.WorkflowDefinition, runID, query string) (*Result, error) {
	outputs := core.NewOutputs()
	res := &Result{Outputs: outputs}

	steps := def.OrderedSteps()
	size := def.MaxParallelAgents
	if size < 1 {
		size = 1
	}

	for start := 0; start < len(steps); start += size {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		end := min(start+size, len(steps))
		batch := steps[start:end]

		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for i, step := range batch {
			wg.Add(1)
			go func(i int, step core.Step) {
				defer wg.Done()
				// Parallel participants receive the query unmodified and
				// no prior context.
				out, err := e.invoke(ctx, step.ParticipantID, query, nil)
				outputs.Set(out)
				errs[i] = err
			}(i, step)
		}
		wg.Wait()

		nonOptional := 0
		failed := 0
		var firstErr error
		for i, step := range batch {
			participant, _ := def.Participant(step.ParticipantID)
			if participant.Optional {
				continue
			}
			nonOptional++
			if errs[i] != nil {
				failed++
				if firstErr == nil {
					firstErr = errs[i]
				}
			}
		}
		if nonOptional > 0 && failed == nonOptional {
			return res, fmt.Errorf("parallel batch failed: all %d non-optional participants failed: %w",
				nonOptional, firstErr)
		}
	}

	return res, nil
}
