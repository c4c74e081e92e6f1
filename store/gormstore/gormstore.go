// Package gormstore implements the persistence boundary on GORM with the
// pure-Go SQLite driver. Workflow step/participant structure and run
// outputs are serialized as JSON documents inside their rows; the
// communication log is a plain append-only table.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/ensembleai/ensemble/core"
)

// workflowRow is the table representation of a workflow definition. The
// participant and step structure lives in Document so the schema stays
// stable while the authoring format evolves; stats columns are flat for
// cheap read-modify-write updates.
type workflowRow struct {
	ID                string `gorm:"primaryKey"`
	Name              string
	Strategy          string
	OrchestratorID    string
	SynthesisPolicy   string
	MaxParallelAgents int
	IsActive          bool
	Document          []byte

	TotalRuns         int64
	SuccessfulRuns    int64
	AverageDurationMs int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (workflowRow) TableName() string { return "workflows" }

// workflowDocument holds the JSON-serialized parts of a definition.
type workflowDocument struct {
	Participants []core.Participant `json:"participants"`
	Steps        []core.Step        `json:"steps"`
}

// runRow is the table representation of a run record.
type runRow struct {
	ID            string `gorm:"primaryKey"`
	WorkflowID    string `gorm:"index"`
	Query         string
	Status        string
	Outputs       []byte
	FinalAnswer   string
	StartedAt     time.Time
	CompletedAt   time.Time
	DurationMs    int64
	FailureDetail string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (runRow) TableName() string { return "runs" }

// communicationRow is one append-only communication log entry.
type communicationRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"index"`
	FromID    string
	ToID      string
	Kind      string
	Content   string
	Timestamp time.Time
}

func (communicationRow) TableName() string { return "communications" }

// Store implements core.WorkflowStore and core.RunStore on a GORM
// database handle.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) a SQLite database at path and migrates the
// schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return NewFromDB(db)
}

// NewFromDB wraps an existing GORM handle, migrating the schema.
func NewFromDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&workflowRow{}, &runRow{}, &communicationRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// GetWorkflow implements core.WorkflowStore.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*core.WorkflowDefinition, error) {
	var row workflowRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("workflow %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}
	return rowToWorkflow(row)
}

// SaveWorkflow implements core.WorkflowStore.
func (s *Store) SaveWorkflow(ctx context.Context, def *core.WorkflowDefinition) error {
	row, err := workflowToRow(def)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", def.ID, err)
	}
	return nil
}

// CreateRun implements core.RunStore.
func (s *Store) CreateRun(ctx context.Context, rec *core.RunRecord) error {
	row, err := runToRow(rec)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create run %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateRun implements core.RunStore.
func (s *Store) UpdateRun(ctx context.Context, rec *core.RunRecord) error {
	row, err := runToRow(rec)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to update run %s: %w", rec.ID, err)
	}
	return nil
}

// GetRun implements core.RunStore.
func (s *Store) GetRun(ctx context.Context, id string) (*core.RunRecord, error) {
	var row runRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return rowToRun(row)
}

// ListRuns implements core.RunStore, returning runs in creation order.
func (s *Store) ListRuns(ctx context.Context, workflowID string) ([]*core.RunRecord, error) {
	var rows []runRow
	if err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs for workflow %s: %w", workflowID, err)
	}
	result := make([]*core.RunRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRun(row)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

// AppendCommunication implements core.RunStore. Entries are insert-only;
// no update or delete path exists.
func (s *Store) AppendCommunication(ctx context.Context, entry core.CommunicationEntry) error {
	row := communicationRow{
		RunID:     entry.RunID,
		FromID:    entry.From,
		ToID:      entry.To,
		Kind:      string(entry.Kind),
		Content:   entry.Content,
		Timestamp: entry.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append communication entry: %w", err)
	}
	return nil
}

// ListCommunications implements core.RunStore in append order.
func (s *Store) ListCommunications(ctx context.Context, runID string) ([]core.CommunicationEntry, error) {
	var rows []communicationRow
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list communications for run %s: %w", runID, err)
	}
	result := make([]core.CommunicationEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, core.CommunicationEntry{
			RunID:     row.RunID,
			From:      row.FromID,
			To:        row.ToID,
			Kind:      core.MessageKind(row.Kind),
			Content:   row.Content,
			Timestamp: row.Timestamp,
		})
	}
	return result, nil
}

func workflowToRow(def *core.WorkflowDefinition) (workflowRow, error) {
	doc, err := json.Marshal(workflowDocument{
		Participants: def.Participants,
		Steps:        def.Steps,
	})
	if err != nil {
		return workflowRow{}, fmt.Errorf("failed to encode workflow document: %w", err)
	}
	return workflowRow{
		ID:                def.ID,
		Name:              def.Name,
		Strategy:          string(def.Strategy),
		OrchestratorID:    def.OrchestratorID,
		SynthesisPolicy:   string(def.SynthesisPolicy),
		MaxParallelAgents: def.MaxParallelAgents,
		IsActive:          def.IsActive,
		Document:          doc,
		TotalRuns:         def.Stats.TotalRuns,
		SuccessfulRuns:    def.Stats.SuccessfulRuns,
		AverageDurationMs: def.Stats.AverageDuration.Milliseconds(),
	}, nil
}

func rowToWorkflow(row workflowRow) (*core.WorkflowDefinition, error) {
	var doc workflowDocument
	if len(row.Document) > 0 {
		if err := json.Unmarshal(row.Document, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode workflow document: %w", err)
		}
	}
	return &core.WorkflowDefinition{
		ID:                row.ID,
		Name:              row.Name,
		Strategy:          core.Strategy(row.Strategy),
		OrchestratorID:    row.OrchestratorID,
		Participants:      doc.Participants,
		Steps:             doc.Steps,
		SynthesisPolicy:   core.SynthesisPolicy(row.SynthesisPolicy),
		MaxParallelAgents: row.MaxParallelAgents,
		IsActive:          row.IsActive,
		Stats: core.WorkflowStats{
			TotalRuns:       row.TotalRuns,
			SuccessfulRuns:  row.SuccessfulRuns,
			AverageDuration: time.Duration(row.AverageDurationMs) * time.Millisecond,
		},
	}, nil
}

func runToRow(rec *core.RunRecord) (runRow, error) {
	var outputs []byte
	if rec.Outputs != nil {
		var err error
		outputs, err = json.Marshal(rec.Outputs)
		if err != nil {
			return runRow{}, fmt.Errorf("failed to encode run outputs: %w", err)
		}
	}
	return runRow{
		ID:            rec.ID,
		WorkflowID:    rec.WorkflowID,
		Query:         rec.Query,
		Status:        string(rec.Status),
		Outputs:       outputs,
		FinalAnswer:   rec.FinalAnswer,
		StartedAt:     rec.StartedAt,
		CompletedAt:   rec.CompletedAt,
		DurationMs:    rec.Duration.Milliseconds(),
		FailureDetail: rec.FailureDetail,
	}, nil
}

func rowToRun(row runRow) (*core.RunRecord, error) {
	outputs := core.NewOutputs()
	if len(row.Outputs) > 0 {
		if err := json.Unmarshal(row.Outputs, outputs); err != nil {
			return nil, fmt.Errorf("failed to decode run outputs: %w", err)
		}
	}
	return &core.RunRecord{
		ID:            row.ID,
		WorkflowID:    row.WorkflowID,
		Query:         row.Query,
		Status:        core.RunStatus(row.Status),
		Outputs:       outputs,
		FinalAnswer:   row.FinalAnswer,
		StartedAt:     row.StartedAt,
		CompletedAt:   row.CompletedAt,
		Duration:      time.Duration(row.DurationMs) * time.Millisecond,
		FailureDetail: row.FailureDetail,
	}, nil
}
