package workflow

import (
	"context"
	"errors"

	"suggestbot/internal/logging"
	"suggestbot/internal/notifications"
	"suggestbot/internal/requests"
)

func (m *Manager) notifyRun(ctx context.Context, summary RunSummary) {
	if m.notifier == nil {
		return
	}
	var err error
	switch summary.Status {
	case requests.RunStatusCompleted:
		err = m.notifier.Publish(ctx, notifications.EventRunCompleted, notifications.Payload{
			"run_id":    summary.RunID,
			"processed": summary.Processed,
			"errored":   summary.Errored,
			"duration":  summary.Duration(),
		})
	case requests.RunStatusFailed:
		err = m.notifier.Publish(ctx, notifications.EventRunFailed, notifications.Payload{
			"run_id": summary.RunID,
			"error":  summary.Error,
		})
	default:
		return
	}
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		m.logger.Debug("shutting down, could not send run notification")
		return
	}
	m.logger.Debug("run notification failed", logging.Error(err))
}
