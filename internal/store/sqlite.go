package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	status           TEXT NOT NULL DEFAULT 'running',
	datasets_total   INTEGER NOT NULL DEFAULT 0,
	datasets_ok      INTEGER NOT NULL DEFAULT 0,
	datasets_skipped INTEGER NOT NULL DEFAULT 0,
	datasets_failed  INTEGER NOT NULL DEFAULT 0,
	output_path      TEXT,
	error            TEXT,
	started_at       DATETIME NOT NULL,
	finished_at      DATETIME
);

CREATE TABLE IF NOT EXISTS dataset_runs (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT,
	raster_path TEXT,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_dataset_runs_run_id ON dataset_runs(run_id);
CREATE INDEX IF NOT EXISTS idx_dataset_runs_name ON dataset_runs(name, status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartRun(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, datasets_total = ?, datasets_ok = ?, datasets_skipped = ?,
		 datasets_failed = ?, output_path = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusComplete), summary.DatasetsTotal, summary.DatasetsOK,
		summary.DatasetsSkipped, summary.DatasetsFailed, summary.OutputPath,
		time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) RecordDataset(ctx context.Context, runID string, result DatasetResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dataset_runs (id, run_id, name, status, error, raster_path, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, result.Name, string(result.Status),
		result.Error, result.RasterPath, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: record dataset %s", result.Name)
}

func (s *SQLiteStore) LastDatasetSuccess(ctx context.Context, name string) (*time.Time, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT finished_at FROM dataset_runs WHERE name = ? AND status = ?
		 ORDER BY finished_at DESC LIMIT 1`,
		name, string(DatasetOK),
	)

	var finished time.Time
	if err := row.Scan(&finished); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: last success for %s", name)
	}
	return &finished, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, datasets_total, datasets_ok, datasets_skipped, datasets_failed,
		 COALESCE(output_path, ''), COALESCE(error, ''), started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, datasets_total, datasets_ok, datasets_skipped, datasets_failed,
		 COALESCE(output_path, ''), COALESCE(error, ''), started_at, finished_at
		 FROM runs WHERE id = ?`, runID,
	)
	run, err := scanRun(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("sqlite: run %s not found", runID)
		}
		return nil, err
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var status string
	var finished sql.NullTime
	err := row.Scan(&run.ID, &status, &run.DatasetsTotal, &run.DatasetsOK,
		&run.DatasetsSkipped, &run.DatasetsFailed, &run.OutputPath, &run.Error,
		&run.StartedAt, &finished)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	run.Status = RunStatus(status)
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}
