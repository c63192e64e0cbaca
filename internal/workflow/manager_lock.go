package workflow

import (
	"context"
	"fmt"

	"suggestbot/internal/logging"
)

func (m *Manager) acquireLock() error {
	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrLocked, m.lock.Path())
	}
	return nil
}

func (m *Manager) releaseLock() {
	if err := m.lock.Unlock(); err != nil {
		m.logger.Warn("failed to release runner lock",
			logging.Error(err),
			logging.String("lock", m.lock.Path()),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if no runner is active"),
			logging.String(logging.FieldImpact, "the next run may report the lock as held"),
		)
	}
}

// resetInterrupted repairs state a crashed runner left behind. Only call it
// while holding the lock.
func (m *Manager) resetInterrupted(ctx context.Context) {
	if reset, err := m.store.ResetStuckProcessing(ctx); err != nil {
		m.logger.Warn("could not reset stuck requests",
			logging.Error(err),
			logging.String(logging.FieldEventType, "reset_stuck_failed"),
			logging.String(logging.FieldErrorHint, "check database access"),
			logging.String(logging.FieldImpact, "requests left processing will not be retried"),
		)
	} else if reset > 0 {
		m.logger.Info("reset requests left processing by an interrupted run",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "reset_stuck"),
		)
	}
	if failed, err := m.store.FailInterruptedRuns(ctx); err != nil {
		m.logger.Warn("could not close interrupted runs",
			logging.Error(err),
			logging.String(logging.FieldEventType, "fail_interrupted_runs_failed"),
			logging.String(logging.FieldErrorHint, "check database access"),
			logging.String(logging.FieldImpact, "old runs remain listed as running"),
		)
	} else if failed > 0 {
		m.logger.Info("marked interrupted runs as failed",
			logging.Int64("count", failed),
			logging.String(logging.FieldEventType, "fail_interrupted_runs"),
		)
	}
}

// RunnerActive reports whether another process currently holds the runner
// lock.
func (m *Manager) RunnerActive() (bool, error) {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if running {
		return true, nil
	}
	ok, err := m.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	m.releaseLock()
	return false, nil
}
