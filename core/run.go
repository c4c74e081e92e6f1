package core

import "time"

// RunStatus is the state of a run record. The machine is
// Pending -> Running -> {Completed | Failed | Cancelled}; terminal states
// are final and no transition leaves them.
type RunStatus string

const (
	// RunPending is the initial state before execution starts.
	RunPending RunStatus = "pending"
	// RunRunning marks an in-flight run.
	RunRunning RunStatus = "running"
	// RunCompleted marks a successful terminal run.
	RunCompleted RunStatus = "completed"
	// RunFailed marks a failed terminal run; FailureDetail names the cause.
	RunFailed RunStatus = "failed"
	// RunCancelled marks an externally cancelled terminal run.
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// CanTransition reports whether moving from s to next is a legal state
// machine edge.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunPending:
		return next == RunRunning
	case RunRunning:
		return next.Terminal()
	default:
		return false
	}
}

// RunRecord is the durable record of one execution of a workflow against a
// specific query. It is created at run start, owned exclusively by the
// goroutine driving the run, mutated only by the recorder and never deleted
// by the engine.
type RunRecord struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	Query      string `json:"query"`

	Status RunStatus `json:"status"`

	// Outputs maps participant ID to output in completion order. Partial
	// outputs remain visible on failure for diagnosis.
	Outputs *Outputs `json:"outputs"`

	// FinalAnswer is populated only on Completed.
	FinalAnswer string `json:"final_answer,omitempty"`

	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration"`

	// FailureDetail is populated only on Failed and names the first hard
	// failure encountered.
	FailureDetail string `json:"failure_detail,omitempty"`
}

// Clone returns an independent copy of the record.
func (r *RunRecord) Clone() *RunRecord {
	clone := *r
	if r.Outputs != nil {
		clone.Outputs = r.Outputs.Clone()
	}
	return &clone
}

// MessageKind classifies an inter-agent communication entry.
type MessageKind string

const (
	// MessageQuery is a request sent to a participant.
	MessageQuery MessageKind = "query"
	// MessageResponse is a participant's answer handed to the next party.
	MessageResponse MessageKind = "response"
	// MessageFeedback is commentary on another participant's output.
	MessageFeedback MessageKind = "feedback"
	// MessageHandoff delegates a subtask to a subordinate participant.
	MessageHandoff MessageKind = "handoff"
)

// CommunicationEntry is one append-only audit record of what was handed
// from one participant to another during a run. Meaningful for the
// Sequential and Hierarchical strategies; empty for Parallel.
type CommunicationEntry struct {
	RunID     string      `json:"run_id"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Kind      MessageKind `json:"kind"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}
