package workflow

import (
	"context"
	"time"

	"suggestbot/internal/logging"
	"suggestbot/internal/requests"
	"suggestbot/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running      bool
	LastError    string
	LastRun      *RunSummary
	RequestStats map[requests.BotStatus]int
	StageHealth  []stage.Health
	PollInterval time.Duration
	Workers      int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:      m.running,
		PollInterval: m.pollInterval,
		Workers:      m.workers,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastRun != nil {
		last := *m.lastRun
		last.Outcomes = nil
		summary.LastRun = &last
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read request stats",
			logging.Error(err),
			logging.String(logging.FieldEventType, "request_stats_failed"),
			logging.String(logging.FieldErrorHint, "check database access"),
		)
	}
	summary.RequestStats = stats
	if m.processor != nil {
		summary.StageHealth = m.processor.HealthCheck(ctx)
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) recordRun(summary RunSummary, err error) {
	m.mu.Lock()
	m.lastRun = &summary
	m.lastErr = err
	m.mu.Unlock()
}
