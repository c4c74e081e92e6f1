package core

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when a workflow or run does not exist.
var ErrNotFound = errors.New("not found")

// WorkflowStore is the persistence boundary for workflow definitions and
// their embedded stats. The engine only needs read access plus the
// read-modify-write the recorder performs for stats updates.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, id string) (*WorkflowDefinition, error)
	SaveWorkflow(ctx context.Context, def *WorkflowDefinition) error
}

// RunStore is the persistence boundary for run records and the append-only
// communication log. Implementations must never mutate or delete
// communication entries.
type RunStore interface {
	CreateRun(ctx context.Context, rec *RunRecord) error
	UpdateRun(ctx context.Context, rec *RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, workflowID string) ([]*RunRecord, error)

	AppendCommunication(ctx context.Context, entry CommunicationEntry) error
	ListCommunications(ctx context.Context, runID string) ([]CommunicationEntry, error)
}
