package core

// Participant is one addressable unit of work within a workflow. It maps to
// exactly one agent on the external execution service, addressed by ID.
type Participant struct {
	// ID is the external identifier the Invoker resolves.
	ID string `json:"id"`

	// Role is a free-text label ("researcher", "sales", ...) used by the
	// Conditional strategy's routing match and by synthesis labels.
	Role string `json:"role"`

	// ExecutionOrder is the default sequencing key for the Sequential
	// strategy. Zero means unordered / parallel-eligible.
	ExecutionOrder int `json:"execution_order"`

	// Optional participants may fail without failing the run.
	Optional bool `json:"optional"`
}

// Label returns the display name used when outputs are formatted for
// synthesis prompts: the role when set, otherwise the ID.
func (p Participant) Label() string {
	if p.Role != "" {
		return p.Role
	}
	return p.ID
}
