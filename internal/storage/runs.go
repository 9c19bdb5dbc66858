package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"docexport/internal/etl"

	"github.com/google/uuid"
)

// RunStore persists export run history.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts run. An empty ID is filled with a fresh uuid.
func (s *RunStore) CreateRun(run *etl.ExportRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	collections, _ := json.Marshal(nonNil(run.Collections))
	failed, _ := json.Marshal(nonNil(run.FailedCollections))

	_, err := s.db.conn.Exec(s.db.rebind(
		`INSERT INTO export_runs (id, started_at, finished_at, status, collections, failed_collections,
		 rows_read, rows_written, rows_skipped, output, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Status, string(collections), string(failed),
		run.RowsRead, run.RowsWritten, run.RowsSkipped, run.Output, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns one run by id.
func (s *RunStore) GetRun(id string) (*etl.ExportRun, error) {
	row := s.db.conn.QueryRow(s.db.rebind(
		`SELECT id, started_at, finished_at, status, collections, failed_collections,
		 rows_read, rows_written, rows_skipped, output, error
		 FROM export_runs WHERE id = ?`), id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("export run not found: %s", id)
	}
	return run, err
}

// ListRuns returns the most recent runs first. limit <= 0 means 20.
func (s *RunStore) ListRuns(limit int) ([]etl.ExportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.Query(s.db.rebind(
		`SELECT id, started_at, finished_at, status, collections, failed_collections,
		 rows_read, rows_written, rows_skipped, output, error
		 FROM export_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []etl.ExportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*etl.ExportRun, error) {
	var run etl.ExportRun
	var collections, failed string
	if err := sc.Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &collections, &failed,
		&run.RowsRead, &run.RowsWritten, &run.RowsSkipped, &run.Output, &run.Error,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(collections), &run.Collections); err != nil {
		return nil, fmt.Errorf("run %s: decode collections: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(failed), &run.FailedCollections); err != nil {
		return nil, fmt.Errorf("run %s: decode failed_collections: %w", run.ID, err)
	}
	return &run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
