package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ensembleai/ensemble/core"
)

// Call records one invocation received by a ScriptedInvoker.
type Call struct {
	ParticipantID string
	Input         string
	PriorIDs      []string
}

// ScriptedInvoker is an Invoker double with per-participant canned
// responses and failures. Unscripted participants echo their input, so
// pipeline semantics stay observable without scripting every step.
// Safe for concurrent use.
type ScriptedInvoker struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	delays    map[string]time.Duration
	calls     []Call
}

// NewScriptedInvoker creates an empty scripted invoker.
func NewScriptedInvoker() *ScriptedInvoker {
	return &ScriptedInvoker{
		responses: make(map[string]string),
		failures:  make(map[string]error),
		delays:    make(map[string]time.Duration),
	}
}

// Respond scripts a fixed response text for a participant (chainable).
func (s *ScriptedInvoker) Respond(participantID, text string) *ScriptedInvoker {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[participantID] = text
	return s
}

// FailWith scripts a failure for a participant (chainable).
func (s *ScriptedInvoker) FailWith(participantID string, kind core.FailureKind, cause error) *ScriptedInvoker {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[participantID] = core.NewInvokeError(participantID, kind, cause)
	return s
}

// Delay makes a participant's invocation sleep before answering,
// respecting ctx (chainable).
func (s *ScriptedInvoker) Delay(participantID string, d time.Duration) *ScriptedInvoker {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[participantID] = d
	return s
}

// Invoke implements core.Invoker.
func (s *ScriptedInvoker) Invoke(ctx context.Context, participantID, input string, prior *core.Outputs) (core.Output, error) {
	s.mu.Lock()
	call := Call{ParticipantID: participantID, Input: input}
	if prior != nil {
		call.PriorIDs = prior.IDs()
	}
	s.calls = append(s.calls, call)
	delay := s.delays[participantID]
	failure := s.failures[participantID]
	text, scripted := s.responses[participantID]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return core.Output{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return core.Output{}, err
	}
	if failure != nil {
		return core.Output{}, failure
	}
	if !scripted {
		text = fmt.Sprintf("%s: %s", participantID, input)
	}
	return core.Output{ParticipantID: participantID, Text: text, Succeeded: true}, nil
}

// Calls returns a copy of all invocations received so far.
func (s *ScriptedInvoker) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]Call, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// CallsTo returns the number of invocations the participant received.
func (s *ScriptedInvoker) CallsTo(participantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.ParticipantID == participantID {
			n++
		}
	}
	return n
}

// ConcurrencyProbe wraps an Invoker and tracks the maximum number of
// invocations in flight at once. Use it to assert parallel batch bounds.
type ConcurrencyProbe struct {
	Inner core.Invoker

	mu      sync.Mutex
	current int
	max     int
}

// NewConcurrencyProbe wraps inner with in-flight tracking.
func NewConcurrencyProbe(inner core.Invoker) *ConcurrencyProbe {
	return &ConcurrencyProbe{Inner: inner}
}

// Invoke implements core.Invoker.
func (p *ConcurrencyProbe) Invoke(ctx context.Context, participantID, input string, prior *core.Outputs) (core.Output, error) {
	p.mu.Lock()
	p.current++
	if p.current > p.max {
		p.max = p.current
	}
	p.mu.Unlock()

	// Hold the slot long enough for batch peers to overlap.
	time.Sleep(10 * time.Millisecond)
	out, err := p.Inner.Invoke(ctx, participantID, input, prior)

	p.mu.Lock()
	p.current--
	p.mu.Unlock()
	return out, err
}

// MaxInFlight returns the highest observed concurrent invocation count.
func (p *ConcurrencyProbe) MaxInFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max
}
