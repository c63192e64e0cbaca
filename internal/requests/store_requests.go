package requests

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"suggestbot/internal/catalog"
	"suggestbot/internal/evidence"
	"suggestbot/internal/openlibrary"
	"suggestbot/internal/services"
)

// Submit stores a new pending request and its submitted event.
func (s *Store) Submit(ctx context.Context, sub Submission, actorID string) (*Request, error) {
	ctx = ensureContext(ctx)
	query := strings.TrimSpace(sub.RawQuery)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "requests", "submit", "raw query must not be empty", nil)
	}
	if actorID == "" {
		actorID = fmt.Sprintf("patron:%d", sub.PatronRecordID)
	}

	id := newHexID()
	eventID := newHexID()
	now := s.timestamp()
	payload, err := json.Marshal(map[string]any{"format_preference": sub.FormatPreference})
	if err != nil {
		return nil, fmt.Errorf("marshal submitted payload: %w", err)
	}

	err = retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO purchase_requests (
                request_id, created_ts, patron_record_id, raw_query, format_preference, patron_notes,
                status, bot_status
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, now, sub.PatronRecordID, query,
			nullableString(strings.TrimSpace(sub.FormatPreference)),
			nullableString(strings.TrimSpace(sub.PatronNotes)),
			StaffStatusNew, BotStatusPending,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO request_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			eventID, id, now, actorID, EventSubmitted, string(payload),
		); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	s.notify(ctx, Event{
		ID:          eventID,
		RequestID:   id,
		ActorID:     actorID,
		Type:        EventSubmitted,
		PayloadJSON: string(payload),
	}, now)
	return s.Get(ctx, id)
}

// Get fetches a request by identifier. A missing request yields (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+requestColumns+` FROM purchase_requests WHERE request_id = ?`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// List returns requests filtered by bot status (or all when none are given),
// oldest first.
func (s *Store) List(ctx context.Context, statuses ...BotStatus) ([]*Request, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + requestColumns + ` FROM purchase_requests`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE bot_status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_ts, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ListPending returns up to limit pending request ids, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT request_id FROM purchase_requests WHERE bot_status = ? ORDER BY created_ts, rowid LIMIT ?`,
		BotStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClaimForProcessing atomically moves a pending request to processing. It
// returns false when another worker already claimed it or it is not pending.
func (s *Store) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	return s.claim(ctx, id, BotStatusPending)
}

// Reclaim moves a request in any settled state back to processing so it can
// be re-run on demand. Requests already processing are left alone.
func (s *Store) Reclaim(ctx context.Context, id string) (bool, error) {
	return s.claim(ctx, id, BotStatusPending, BotStatusCompleted, BotStatusError, BotStatusSkipped)
}

func (s *Store) claim(ctx context.Context, id string, from ...BotStatus) (bool, error) {
	args := []any{BotStatusProcessing, s.timestamp(), id}
	for _, status := range from {
		args = append(args, status)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE purchase_requests SET bot_status = ?, updated_ts = ?
         WHERE request_id = ? AND bot_status IN (`+makePlaceholders(len(from))+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("claim request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim request rows: %w", err)
	}
	return affected == 1, nil
}

// MarkCompleted records successful processing.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	now := s.timestamp()
	return s.update(ctx, id, "mark completed",
		`bot_status = ?, bot_processed_ts = ?, bot_error = NULL`,
		BotStatusCompleted, now,
	)
}

// MarkError records an orchestrator-level failure.
func (s *Store) MarkError(ctx context.Context, id, message string) error {
	now := s.timestamp()
	return s.update(ctx, id, "mark error",
		`bot_status = ?, bot_processed_ts = ?, bot_error = ?`,
		BotStatusError, now, message,
	)
}

// MarkSkipped records that the bot deliberately left a request alone.
func (s *Store) MarkSkipped(ctx context.Context, id, reason string) error {
	now := s.timestamp()
	return s.update(ctx, id, "mark skipped",
		`bot_status = ?, bot_processed_ts = ?, bot_notes = ?`,
		BotStatusSkipped, now, nullableString(reason),
	)
}

// SaveEvidence stores the evidence packet.
func (s *Store) SaveEvidence(ctx context.Context, id string, packet *evidence.Packet) error {
	if packet == nil {
		return services.Wrap(services.ErrValidation, "requests", "save evidence", "packet is nil", nil)
	}
	data, err := packet.Marshal()
	if err != nil {
		return err
	}
	return s.update(ctx, id, "save evidence",
		`evidence_packet_json = ?, evidence_extracted_ts = ?`,
		string(data), s.timestamp(),
	)
}

// SaveCatalogResult stores the match classification and the full candidate
// sets artifact.
func (s *Store) SaveCatalogResult(ctx context.Context, id string, match catalog.Match, sets *catalog.CandidateSets) error {
	var holdings any
	if sets != nil {
		data, err := sets.Marshal()
		if err != nil {
			return err
		}
		holdings = string(data)
	}
	if match == "" {
		match = catalog.MatchNone
	}
	return s.update(ctx, id, "save catalog result",
		`catalog_match = ?, catalog_holdings_json = ?, catalog_checked_ts = ?`,
		match, holdings, s.timestamp(),
	)
}

// SaveOpenLibraryResult stores the enrichment and sets the checked marker.
func (s *Store) SaveOpenLibraryResult(ctx context.Context, id string, enrichment openlibrary.Enrichment) error {
	data, err := enrichment.Marshal()
	if err != nil {
		return err
	}
	return s.update(ctx, id, "save openlibrary result",
		`openlibrary_found = ?, openlibrary_enrichment_json = ?, openlibrary_checked_ts = ?`,
		boolToInt(enrichment.Found()), string(data), s.timestamp(),
	)
}

// SaveConsortium stores the consortium availability outcome.
func (s *Store) SaveConsortium(ctx context.Context, id string, result ConsortiumResult) error {
	var sources any
	if len(result.Sources) > 0 {
		data, err := json.Marshal(result.Sources)
		if err != nil {
			return fmt.Errorf("marshal consortium sources: %w", err)
		}
		sources = string(data)
	}
	return s.update(ctx, id, "save consortium",
		`consortium_available = ?, consortium_sources_json = ?, consortium_checked_ts = ?`,
		boolToInt(result.Available), sources, s.timestamp(),
	)
}

// SaveRefinement stores refined bibliographic fields.
func (s *Store) SaveRefinement(ctx context.Context, id string, refinement Refinement) error {
	var confidence any
	if refinement.Confidence != nil {
		confidence = *refinement.Confidence
	}
	return s.update(ctx, id, "save refinement",
		`refined_title = ?, refined_author = ?, refined_isbn = ?, authority_source = ?, refinement_confidence = ?`,
		nullableString(refinement.Title), nullableString(refinement.Author), nullableString(refinement.ISBN),
		nullableString(refinement.Source), confidence,
	)
}

// SaveAssessment stores the selection assessment and optional staff-facing notes.
func (s *Store) SaveAssessment(ctx context.Context, id string, assessment map[string]any, notes string) error {
	if assessment == nil {
		assessment = map[string]any{}
	}
	data, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	return s.update(ctx, id, "save assessment",
		`bot_assessment_json = ?, bot_notes = ?`,
		string(data), nullableString(notes),
	)
}

// SaveAction records the automatic actions taken, comma separated.
func (s *Store) SaveAction(ctx context.Context, id string, actions []string) error {
	if len(actions) == 0 {
		return nil
	}
	return s.update(ctx, id, "save action",
		`bot_action = ?, bot_action_ts = ?`,
		strings.Join(actions, ","), s.timestamp(),
	)
}

// UpdateStaffStatus changes the staff review status and records a
// status_changed event.
func (s *Store) UpdateStaffStatus(ctx context.Context, id string, status StaffStatus, actorID string) error {
	if _, ok := ParseStaffStatus(string(status)); !ok {
		return services.Wrap(services.ErrValidation, "requests", "update status", fmt.Sprintf("unknown status %q", status), nil)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return services.Wrap(services.ErrNotFound, "requests", "update status", "request "+id, nil)
	}
	if err := s.update(ctx, id, "update status", `status = ?`, status); err != nil {
		return err
	}
	_, err = s.AppendEvent(ctx, id, EventStatusChanged, actorID, map[string]any{
		"from": current.Status,
		"to":   status,
	})
	return err
}

// AddStaffNote replaces the staff notes and records a note_added event.
func (s *Store) AddStaffNote(ctx context.Context, id, note, actorID string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return services.Wrap(services.ErrValidation, "requests", "add note", "note must not be empty", nil)
	}
	if err := s.update(ctx, id, "add note", `staff_notes = ?`, note); err != nil {
		return err
	}
	_, err := s.AppendEvent(ctx, id, EventNoteAdded, actorID, map[string]any{"length": len(note)})
	return err
}

// update applies a SET clause to one request and stamps updated_ts. A
// missing request is reported as services.ErrNotFound.
func (s *Store) update(ctx context.Context, id, operation, set string, args ...any) error {
	args = append(args, s.timestamp(), id)
	res, err := s.execWithRetry(ctx,
		`UPDATE purchase_requests SET `+set+`, updated_ts = ? WHERE request_id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", operation, err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "requests", operation, "request "+id, nil)
	}
	return nil
}
