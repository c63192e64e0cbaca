package workflow

import (
	"context"
	"errors"
	"time"

	"suggestbot/internal/logging"
)

// Start takes the runner lock and begins the scheduled batch loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if err := m.acquireLock(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.resetInterrupted(ctx)

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.Duration("interval", m.pollInterval),
		logging.String("lock", m.lock.Path()),
	)
	go m.loop(loopCtx)
	return nil
}

// Stop ends the loop after the current request finishes and releases the lock.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.releaseLock()
	m.logger.Info("daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		wait := m.pollInterval
		if _, err := m.runBatch(ctx); err != nil {
			m.setLastError(err)
			wait = m.retryInterval
		}
		if removed := logging.PruneDailyLogs(m.logger, m.cfg.Paths.LogDir, m.cfg.Logging.RetentionDays, m.activeLog); removed > 0 {
			m.logger.Info("pruned old log files", logging.Int("count", removed))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
