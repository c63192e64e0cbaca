package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateRun starts a run record with the given configuration snapshot.
func (s *Store) CreateRun(ctx context.Context, configSnapshot string) (*Run, error) {
	id := uuid.NewString()
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO bot_runs (run_id, started_ts, status, config_snapshot_json) VALUES (?, ?, ?, ?)`,
		id, now, RunStatusRunning, nullableString(configSnapshot),
	); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// CompleteRun closes a run with its final status and counts.
func (s *Store) CompleteRun(ctx context.Context, id string, status RunStatus, processed, errored int, errorMessage string) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE bot_runs SET completed_ts = ?, status = ?, requests_processed = ?, requests_errored = ?, error_message = ?
         WHERE run_id = ?`,
		s.timestamp(), status, processed, errored, nullableString(errorMessage), id,
	); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// GetRun fetches one run. A missing run yields (nil, nil).
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM bot_runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM bot_runs ORDER BY started_ts DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
