package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ensembleai/ensemble/core"
)

// InMemory is a volatile implementation of core.WorkflowStore and
// core.RunStore. It is safe for concurrent access. Each returned value is
// a clone to prevent external mutation of internal state.
type InMemory struct {
	mu        sync.RWMutex
	workflows map[string]*core.WorkflowDefinition
	runs      map[string]*core.RunRecord
	comms     map[string][]core.CommunicationEntry
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		workflows: make(map[string]*core.WorkflowDefinition),
		runs:      make(map[string]*core.RunRecord),
		comms:     make(map[string][]core.CommunicationEntry),
	}
}

// GetWorkflow returns a clone of the stored definition.
func (s *InMemory) GetWorkflow(_ context.Context, id string) (*core.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", id, core.ErrNotFound)
	}
	return def.Clone(), nil
}

// SaveWorkflow stores a clone of the provided definition.
func (s *InMemory) SaveWorkflow(_ context.Context, def *core.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[def.ID] = def.Clone()
	return nil
}

// CreateRun stores a new run record, rejecting duplicate IDs.
func (s *InMemory) CreateRun(_ context.Context, rec *core.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[rec.ID]; ok {
		return fmt.Errorf("run %s already exists", rec.ID)
	}
	s.runs[rec.ID] = rec.Clone()
	return nil
}

// UpdateRun replaces an existing run record.
func (s *InMemory) UpdateRun(_ context.Context, rec *core.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[rec.ID]; !ok {
		return fmt.Errorf("run %s: %w", rec.ID, core.ErrNotFound)
	}
	s.runs[rec.ID] = rec.Clone()
	return nil
}

// GetRun returns a clone of the stored run record.
func (s *InMemory) GetRun(_ context.Context, id string) (*core.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, core.ErrNotFound)
	}
	return rec.Clone(), nil
}

// ListRuns returns clones of all runs for a workflow in creation order.
func (s *InMemory) ListRuns(_ context.Context, workflowID string) ([]*core.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*core.RunRecord
	for _, rec := range s.runs {
		if rec.WorkflowID == workflowID {
			result = append(result, rec.Clone())
		}
	}
	return result, nil
}

// AppendCommunication appends one entry to the run's communication log.
func (s *InMemory) AppendCommunication(_ context.Context, entry core.CommunicationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comms[entry.RunID] = append(s.comms[entry.RunID], entry)
	return nil
}

// ListCommunications returns a copy of the run's communication log in
// append order.
func (s *InMemory) ListCommunications(_ context.Context, runID string) ([]core.CommunicationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.comms[runID]
	result := make([]core.CommunicationEntry, len(entries))
	copy(result, entries)
	return result, nil
}
