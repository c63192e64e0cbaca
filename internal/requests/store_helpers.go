package requests

import (
	"database/sql"
	"errors"
	"time"

	"suggestbot/internal/catalog"
)

const requestColumns = `request_id, created_ts, patron_record_id, raw_query, format_preference, patron_notes,
    status, staff_notes, updated_ts, bot_status, bot_processed_ts, bot_error,
    evidence_packet_json, evidence_extracted_ts, catalog_match, catalog_holdings_json, catalog_checked_ts,
    openlibrary_found, openlibrary_enrichment_json, openlibrary_checked_ts,
    consortium_available, consortium_sources_json, consortium_checked_ts,
    refined_title, refined_author, refined_isbn, authority_source, refinement_confidence,
    bot_assessment_json, bot_notes, bot_action, bot_action_ts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(scanner rowScanner) (*Request, error) {
	var (
		id                  string
		createdRaw          string
		patronID            int64
		rawQuery            string
		formatPreference    sql.NullString
		patronNotes         sql.NullString
		status              string
		staffNotes          sql.NullString
		updatedRaw          sql.NullString
		botStatus           string
		processedRaw        sql.NullString
		botError            sql.NullString
		evidenceJSON        sql.NullString
		evidenceRaw         sql.NullString
		catalogMatch        sql.NullString
		holdingsJSON        sql.NullString
		catalogRaw          sql.NullString
		openLibraryFound    sql.NullInt64
		enrichmentJSON      sql.NullString
		openLibraryRaw      sql.NullString
		consortiumAvailable sql.NullInt64
		consortiumJSON      sql.NullString
		consortiumRaw       sql.NullString
		refinedTitle        sql.NullString
		refinedAuthor       sql.NullString
		refinedISBN         sql.NullString
		authoritySource     sql.NullString
		refinementScore     sql.NullFloat64
		assessmentJSON      sql.NullString
		botNotes            sql.NullString
		botAction           sql.NullString
		actionRaw           sql.NullString
	)
	if err := scanner.Scan(
		&id, &createdRaw, &patronID, &rawQuery, &formatPreference, &patronNotes,
		&status, &staffNotes, &updatedRaw, &botStatus, &processedRaw, &botError,
		&evidenceJSON, &evidenceRaw, &catalogMatch, &holdingsJSON, &catalogRaw,
		&openLibraryFound, &enrichmentJSON, &openLibraryRaw,
		&consortiumAvailable, &consortiumJSON, &consortiumRaw,
		&refinedTitle, &refinedAuthor, &refinedISBN, &authoritySource, &refinementScore,
		&assessmentJSON, &botNotes, &botAction, &actionRaw,
	); err != nil {
		return nil, err
	}

	req := &Request{
		ID:                        id,
		PatronRecordID:            patronID,
		RawQuery:                  rawQuery,
		FormatPreference:          formatPreference.String,
		PatronNotes:               patronNotes.String,
		Status:                    StaffStatus(status),
		StaffNotes:                staffNotes.String,
		UpdatedAt:                 optionalTime(updatedRaw),
		BotStatus:                 BotStatus(botStatus),
		BotProcessedAt:            optionalTime(processedRaw),
		BotError:                  botError.String,
		EvidencePacketJSON:        evidenceJSON.String,
		EvidenceExtractedAt:       optionalTime(evidenceRaw),
		CatalogMatch:              catalog.ParseMatch(catalogMatch.String),
		CatalogHoldingsJSON:       holdingsJSON.String,
		CatalogCheckedAt:          optionalTime(catalogRaw),
		OpenLibraryFound:          optionalBool(openLibraryFound),
		OpenLibraryEnrichmentJSON: enrichmentJSON.String,
		OpenLibraryCheckedAt:      optionalTime(openLibraryRaw),
		ConsortiumAvailable:       optionalBool(consortiumAvailable),
		ConsortiumSourcesJSON:     consortiumJSON.String,
		ConsortiumCheckedAt:       optionalTime(consortiumRaw),
		RefinedTitle:              refinedTitle.String,
		RefinedAuthor:             refinedAuthor.String,
		RefinedISBN:               refinedISBN.String,
		AuthoritySource:           authoritySource.String,
		AssessmentJSON:            assessmentJSON.String,
		BotNotes:                  botNotes.String,
		BotAction:                 botAction.String,
		BotActionAt:               optionalTime(actionRaw),
	}
	if refinementScore.Valid {
		score := refinementScore.Float64
		req.RefinementConfidence = &score
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		req.CreatedAt = created
	}
	return req, nil
}

const eventColumns = "event_id, request_id, ts, actor_id, event_type, payload_json"

func scanEvent(scanner rowScanner) (Event, error) {
	var (
		event     Event
		tsRaw     string
		eventType string
		payload   sql.NullString
	)
	if err := scanner.Scan(&event.ID, &event.RequestID, &tsRaw, &event.ActorID, &eventType, &payload); err != nil {
		return Event{}, err
	}
	event.Type = EventType(eventType)
	event.PayloadJSON = payload.String
	if ts, err := parseTimeString(tsRaw); err == nil {
		event.Timestamp = ts
	}
	return event, nil
}

const runColumns = "run_id, started_ts, completed_ts, status, requests_processed, requests_errored, config_snapshot_json, error_message"

func scanRun(scanner rowScanner) (Run, error) {
	var (
		run          Run
		startedRaw   string
		completedRaw sql.NullString
		status       string
		snapshot     sql.NullString
		errorMessage sql.NullString
	)
	if err := scanner.Scan(&run.ID, &startedRaw, &completedRaw, &status, &run.Processed, &run.Errored, &snapshot, &errorMessage); err != nil {
		return Run{}, err
	}
	run.Status = RunStatus(status)
	run.ConfigSnapshot = snapshot.String
	run.ErrorMessage = errorMessage.String
	run.CompletedAt = optionalTime(completedRaw)
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func optionalTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	parsed, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func optionalBool(raw sql.NullInt64) *bool {
	if !raw.Valid {
		return nil
	}
	value := raw.Int64 != 0
	return &value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
