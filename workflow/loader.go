package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ensembleai/ensemble/core"
)

// DefaultMaxParallelAgents is used when a document omits the bound.
const DefaultMaxParallelAgents = 3

// document mirrors the untyped nested structure authored externally. Field
// names match the wire format of the authoring surface.
type document struct {
	ID                string           `json:"id" yaml:"id"`
	Name              string           `json:"name" yaml:"name"`
	Strategy          string           `json:"strategy" yaml:"strategy"`
	Orchestrator      string           `json:"orchestrator_id" yaml:"orchestrator_id"`
	Participants      []participantDoc `json:"participants" yaml:"participants"`
	Steps             []stepDoc        `json:"steps" yaml:"steps"`
	SynthesisStrategy string           `json:"synthesis_strategy" yaml:"synthesis_strategy"`
	MaxParallelAgents *int             `json:"max_parallel_agents" yaml:"max_parallel_agents"`
	IsActive          *bool            `json:"is_active" yaml:"is_active"`
}

type participantDoc struct {
	ID             string `json:"id" yaml:"id"`
	Role           string `json:"role" yaml:"role"`
	ExecutionOrder int    `json:"execution_order" yaml:"execution_order"`
	Optional       bool   `json:"optional" yaml:"optional"`
}

type stepDoc struct {
	ParticipantID  string   `json:"participant_id" yaml:"participant_id"`
	ExecutionOrder int      `json:"execution_order" yaml:"execution_order"`
	Condition      string   `json:"condition" yaml:"condition"`
	DependsOn      []string `json:"depends_on" yaml:"depends_on"`
}

// ParseJSON loads a workflow definition from a JSON document, rejecting
// malformed documents at the boundary.
func ParseJSON(data []byte) (*core.WorkflowDefinition, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, core.ValidationErrors{{
			Code:   core.CodeMalformedDocument,
			Detail: fmt.Sprintf("invalid JSON: %v", err),
		}}
	}
	return fromDocument(doc)
}

// ParseYAML loads a workflow definition from a YAML document.
func ParseYAML(data []byte) (*core.WorkflowDefinition, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, core.ValidationErrors{{
			Code:   core.CodeMalformedDocument,
			Detail: fmt.Sprintf("invalid YAML: %v", err),
		}}
	}
	return fromDocument(doc)
}

// fromDocument converts the untyped document into a typed definition,
// applying defaults and collecting every shape problem before returning.
func fromDocument(doc document) (*core.WorkflowDefinition, error) {
	var errs core.ValidationErrors

	malformed := func(format string, args ...any) {
		errs = append(errs, core.ValidationError{
			Code:   core.CodeMalformedDocument,
			Detail: fmt.Sprintf(format, args...),
		})
	}

	if doc.Name == "" {
		malformed("workflow name is required")
	}
	if len(doc.Steps) == 0 {
		malformed("workflow declares no steps")
	}

	strategy := core.Strategy(doc.Strategy)
	if !strategy.Valid() {
		malformed("unknown strategy %q", doc.Strategy)
	}

	policy := core.SynthesisPolicy(doc.SynthesisStrategy)
	if doc.SynthesisStrategy == "" {
		policy = core.SynthesisConcatenate
	} else if !policy.Valid() {
		malformed("unknown synthesis strategy %q", doc.SynthesisStrategy)
	}

	maxParallel := DefaultMaxParallelAgents
	if doc.MaxParallelAgents != nil {
		if *doc.MaxParallelAgents < 1 {
			malformed("max_parallel_agents must be >= 1, got %d", *doc.MaxParallelAgents)
		} else {
			maxParallel = *doc.MaxParallelAgents
		}
	}

	def := &core.WorkflowDefinition{
		ID:                doc.ID,
		Name:              doc.Name,
		Strategy:          strategy,
		OrchestratorID:    doc.Orchestrator,
		SynthesisPolicy:   policy,
		MaxParallelAgents: maxParallel,
		IsActive:          true,
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if doc.IsActive != nil {
		def.IsActive = *doc.IsActive
	}

	for i, p := range doc.Participants {
		if p.ID == "" {
			malformed("participant %d has no id", i)
			continue
		}
		def.Participants = append(def.Participants, core.Participant{
			ID:             p.ID,
			Role:           p.Role,
			ExecutionOrder: p.ExecutionOrder,
			Optional:       p.Optional,
		})
	}

	for i, s := range doc.Steps {
		if s.ParticipantID == "" {
			malformed("step %d has no participant_id", i)
			continue
		}
		cond := core.Condition(s.Condition)
		if s.Condition == "" {
			cond = core.ConditionAlways
		} else if !cond.Valid() {
			malformed("step %d has unknown condition %q", i, s.Condition)
		}
		def.Steps = append(def.Steps, core.Step{
			ParticipantID:  s.ParticipantID,
			ExecutionOrder: s.ExecutionOrder,
			Condition:      cond,
			DependsOn:      append([]string(nil), s.DependsOn...),
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	if verrs := Validate(def); len(verrs) > 0 {
		return nil, core.ValidationErrors(verrs)
	}

	return def, nil
}
