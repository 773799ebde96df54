// Package store persists unified company records and a log of unify runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bds-unify/internal/company"
)

// ErrNotFound is returned when a run or company does not exist.
var ErrNotFound = eris.New("store: not found")

// RunStatus is the lifecycle state of a unify run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary is recorded when a run completes.
type RunSummary struct {
	TotalRecords     int    `json:"total_records"`
	DuplicatesMerged int    `json:"duplicates_merged"`
	ValidationErrors int    `json:"validation_errors"`
	Persisted        int64  `json:"persisted"`
	OutputFile       string `json:"output_file,omitempty"`
}

// Run is one row of the run log.
type Run struct {
	ID          string      `json:"id"`
	Status      RunStatus   `json:"status"`
	Sources     []string    `json:"sources"`
	Summary     *RunSummary `json:"summary,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Store defines the persistence interface for unified records.
type Store interface {
	// Companies
	UpsertCompanies(ctx context.Context, records []company.Record) (int64, error)
	GetCompany(ctx context.Context, id string) (*company.Record, error)

	// Run log
	StartRun(ctx context.Context, sources []string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// DefaultListLimit caps ListRuns when no positive limit is given.
const DefaultListLimit = 50

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
