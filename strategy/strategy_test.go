package strategy

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/internal/testutil"
)

// capturedComms records communication entries for assertions.
type capturedComms struct {
	mu      sync.Mutex
	entries []core.CommunicationEntry
}

func (c *capturedComms) LogCommunication(_ context.Context, runID, from, to string, kind core.MessageKind, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, core.CommunicationEntry{
		RunID: runID, From: from, To: to, Kind: kind, Content: content,
	})
	return nil
}

func (c *capturedComms) all() []core.CommunicationEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]core.CommunicationEntry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

func TestFor_AllKnownStrategies(t *testing.T) {
	deps := Deps{Invoker: testutil.NewScriptedInvoker(), Comms: &capturedComms{}}

	for _, s := range []core.Strategy{
		core.StrategySequential,
		core.StrategyParallel,
		core.StrategyConditional,
		core.StrategyHierarchical,
	} {
		exec, err := For(s, deps)
		assert.NoError(t, err, "strategy %s", s)
		assert.NotNil(t, exec)
	}
}

func TestFor_UnknownStrategyFailsFast(t *testing.T) {
	exec, err := For("round_robin", Deps{Invoker: testutil.NewScriptedInvoker()})
	assert.Nil(t, exec)

	var ee *core.EngineError
	assert.ErrorAs(t, err, &ee)
}
