package pipeline

import (
	"context"
	"log/slog"

	"suggestbot/internal/logging"
	"suggestbot/internal/requests"
)

// recorder is the store surface shared by every stage.
type recorder struct {
	store   *requests.Store
	actorID string
	logger  *slog.Logger
}

func (r recorder) emit(ctx context.Context, requestID string, eventType requests.EventType, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	_, err := r.store.AppendEvent(ctx, requestID, eventType, r.actorID, payload)
	return err
}

func (r recorder) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, r.logger)
}
