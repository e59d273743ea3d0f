// Package store persists heat-map run history in a local SQLite database.
// The log powers skip-if-current checks and the status endpoints.
package store

import (
	"context"
	"time"
)

// RunStatus tracks a pipeline run's lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// DatasetStatus records the outcome for one dataset within a run.
type DatasetStatus string

const (
	DatasetOK      DatasetStatus = "ok"
	DatasetSkipped DatasetStatus = "skipped"
	DatasetFailed  DatasetStatus = "failed"
)

// Run is one heat-map pipeline execution.
type Run struct {
	ID              string     `json:"id"`
	Status          RunStatus  `json:"status"`
	DatasetsTotal   int        `json:"datasets_total"`
	DatasetsOK      int        `json:"datasets_ok"`
	DatasetsSkipped int        `json:"datasets_skipped"`
	DatasetsFailed  int        `json:"datasets_failed"`
	OutputPath      string     `json:"output_path,omitempty"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// RunSummary carries a completed run's tallies.
type RunSummary struct {
	DatasetsTotal   int
	DatasetsOK      int
	DatasetsSkipped int
	DatasetsFailed  int
	OutputPath      string
}

// DatasetResult is the per-dataset record within a run.
type DatasetResult struct {
	Name       string
	Status     DatasetStatus
	Error      string
	RasterPath string
}

// Store defines the run-log persistence interface.
type Store interface {
	StartRun(ctx context.Context) (*Run, error)
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	RecordDataset(ctx context.Context, runID string, result DatasetResult) error

	// LastDatasetSuccess returns when the named dataset last rasterized
	// successfully, or nil if it never has.
	LastDatasetSuccess(ctx context.Context, name string) (*time.Time, error)

	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
