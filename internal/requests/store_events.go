package requests

import (
	"context"
	"encoding/json"
	"fmt"

	"suggestbot/internal/services"
)

// AppendEvent writes one audit event and returns its id. payload may be nil.
func (s *Store) AppendEvent(ctx context.Context, requestID string, eventType EventType, actorID string, payload any) (string, error) {
	if !eventType.Valid() {
		return "", services.Wrap(services.ErrValidation, "requests", "append event", fmt.Sprintf("unknown event type %q", eventType), nil)
	}
	if actorID == "" {
		actorID = DefaultActorID
	}
	var payloadJSON any
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		payloadJSON = string(data)
	}

	id := newHexID()
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO request_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		id, requestID, now, actorID, eventType, payloadJSON,
	); err != nil {
		return "", fmt.Errorf("append %s event: %w", eventType, err)
	}

	event := Event{ID: id, RequestID: requestID, ActorID: actorID, Type: eventType}
	if text, ok := payloadJSON.(string); ok {
		event.PayloadJSON = text
	}
	s.notify(ctx, event, now)
	return id, nil
}

// ListEvents returns the audit trail for a request in the order it was written.
func (s *Store) ListEvents(ctx context.Context, requestID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+eventColumns+` FROM request_events WHERE request_id = ? ORDER BY ts, seq`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) notify(ctx context.Context, event Event, ts string) {
	if s.hook == nil {
		return
	}
	if parsed, err := parseTimeString(ts); err == nil {
		event.Timestamp = parsed
	}
	s.hook(ensureContext(ctx), event)
}
