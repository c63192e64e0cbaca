package requests

import (
	"context"
	"fmt"
)

// Stats returns a count of requests grouped by bot status.
func (s *Store) Stats(ctx context.Context) (map[BotStatus]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT bot_status, COUNT(1) FROM purchase_requests GROUP BY bot_status`)
	if err != nil {
		return nil, fmt.Errorf("request stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[BotStatus]int)
	for rows.Next() {
		var status BotStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ResetStuckProcessing returns requests left in processing by a crashed run
// to pending. Call it only while holding the single-runner lock.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE purchase_requests SET bot_status = ?, updated_ts = ? WHERE bot_status = ?`,
		BotStatusPending, s.timestamp(), BotStatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck requests: %w", err)
	}
	return res.RowsAffected()
}

// FailInterruptedRuns marks runs still recorded as running as failed.
func (s *Store) FailInterruptedRuns(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE bot_runs SET status = ?, completed_ts = ?, error_message = 'interrupted' WHERE status = ?`,
		RunStatusFailed, s.timestamp(), RunStatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted runs: %w", err)
	}
	return res.RowsAffected()
}
