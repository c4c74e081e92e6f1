package testutil

import (
	"github.com/ensembleai/ensemble/core"
)

// WorkflowBuilder provides a fluent helper for constructing workflow
// definitions in tests. Example:
//
//	def := NewWorkflowBuilder("wf-1").
//		Strategy(core.StrategySequential).
//		Participant("analyst", "Research").
//		Participant("writer", "Writing", Optional()).
//		Build()
//
// Chain only the parts you need; sensible defaults are applied: active,
// concatenate synthesis, max parallelism 3, one step per participant in
// declaration order.
type WorkflowBuilder struct {
	def       core.WorkflowDefinition
	nextOrder int
}

// NewWorkflowBuilder creates a builder for an active sequential workflow.
func NewWorkflowBuilder(id string) *WorkflowBuilder {
	return &WorkflowBuilder{
		def: core.WorkflowDefinition{
			ID:                id,
			Name:              id,
			Strategy:          core.StrategySequential,
			SynthesisPolicy:   core.SynthesisConcatenate,
			MaxParallelAgents: 3,
			IsActive:          true,
		},
		nextOrder: 1,
	}
}

// Name sets the display name (chainable).
func (b *WorkflowBuilder) Name(name string) *WorkflowBuilder {
	b.def.Name = name
	return b
}

// Strategy sets the coordination strategy (chainable).
func (b *WorkflowBuilder) Strategy(s core.Strategy) *WorkflowBuilder {
	b.def.Strategy = s
	return b
}

// Synthesis sets the synthesis policy (chainable).
func (b *WorkflowBuilder) Synthesis(p core.SynthesisPolicy) *WorkflowBuilder {
	b.def.SynthesisPolicy = p
	return b
}

// Orchestrator adds a participant and designates it as the orchestrator
// (chainable). The orchestrator gets no step of its own.
func (b *WorkflowBuilder) Orchestrator(id, role string) *WorkflowBuilder {
	b.def.OrchestratorID = id
	b.def.Participants = append(b.def.Participants, core.Participant{
		ID:             id,
		Role:           role,
		ExecutionOrder: 0,
	})
	return b
}

// Participant adds a participant plus a matching step at the next
// execution order (chainable).
func (b *WorkflowBuilder) Participant(id, role string, optFns ...func(p *core.Participant)) *WorkflowBuilder {
	p := core.Participant{ID: id, Role: role, ExecutionOrder: b.nextOrder}
	for _, fn := range optFns {
		fn(&p)
	}
	b.def.Participants = append(b.def.Participants, p)
	b.def.Steps = append(b.def.Steps, core.Step{
		ParticipantID:  p.ID,
		ExecutionOrder: p.ExecutionOrder,
		Condition:      core.ConditionAlways,
	})
	b.nextOrder++
	return b
}

// Optional marks the participant as skippable on failure.
func Optional() func(p *core.Participant) {
	return func(p *core.Participant) { p.Optional = true }
}

// Steps replaces the auto-generated step list entirely (chainable).
func (b *WorkflowBuilder) Steps(steps ...core.Step) *WorkflowBuilder {
	b.def.Steps = steps
	return b
}

// Condition overrides the condition of the step for the given participant
// (chainable).
func (b *WorkflowBuilder) Condition(participantID string, c core.Condition) *WorkflowBuilder {
	for i := range b.def.Steps {
		if b.def.Steps[i].ParticipantID == participantID {
			b.def.Steps[i].Condition = c
		}
	}
	return b
}

// DependsOn sets the dependency list of the step for the given participant
// (chainable).
func (b *WorkflowBuilder) DependsOn(participantID string, deps ...string) *WorkflowBuilder {
	for i := range b.def.Steps {
		if b.def.Steps[i].ParticipantID == participantID {
			b.def.Steps[i].DependsOn = deps
		}
	}
	return b
}

// MaxParallel sets the parallel batch bound (chainable).
func (b *WorkflowBuilder) MaxParallel(n int) *WorkflowBuilder {
	b.def.MaxParallelAgents = n
	return b
}

// Inactive soft-disables the workflow (chainable).
func (b *WorkflowBuilder) Inactive() *WorkflowBuilder {
	b.def.IsActive = false
	return b
}

// Build returns the constructed definition.
func (b *WorkflowBuilder) Build() *core.WorkflowDefinition {
	def := b.def
	return def.Clone()
}
