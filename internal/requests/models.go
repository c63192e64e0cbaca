package requests

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"suggestbot/internal/catalog"
	"suggestbot/internal/evidence"
	"suggestbot/internal/openlibrary"
)

// DefaultActorID attributes events written by the bot.
const DefaultActorID = "bot:suggest-a-bot"

// BotStatus tracks automated processing of a request.
type BotStatus string

const (
	BotStatusPending    BotStatus = "pending"
	BotStatusProcessing BotStatus = "processing"
	BotStatusCompleted  BotStatus = "completed"
	BotStatusError      BotStatus = "error"
	BotStatusSkipped    BotStatus = "skipped"
)

// ParseBotStatus normalizes a user-supplied status.
func ParseBotStatus(value string) (BotStatus, bool) {
	switch status := BotStatus(strings.ToLower(strings.TrimSpace(value))); status {
	case BotStatusPending, BotStatusProcessing, BotStatusCompleted, BotStatusError, BotStatusSkipped:
		return status, true
	}
	return "", false
}

// StaffStatus is the review state owned by library staff.
type StaffStatus string

const (
	StaffStatusNew       StaffStatus = "new"
	StaffStatusInReview  StaffStatus = "in_review"
	StaffStatusOrdered   StaffStatus = "ordered"
	StaffStatusDeclined  StaffStatus = "declined"
	StaffStatusDuplicate StaffStatus = "duplicate_or_already_owned"
)

// ParseStaffStatus normalizes a user-supplied staff status.
func ParseStaffStatus(value string) (StaffStatus, bool) {
	switch status := StaffStatus(strings.ToLower(strings.TrimSpace(value))); status {
	case StaffStatusNew, StaffStatusInReview, StaffStatusOrdered, StaffStatusDeclined, StaffStatusDuplicate:
		return status, true
	}
	return "", false
}

// RunStatus is the state of one batch run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// EventType is the closed set of audit event kinds.
type EventType string

const (
	EventSubmitted     EventType = "submitted"
	EventStatusChanged EventType = "status_changed"
	EventNoteAdded     EventType = "note_added"

	EventBotStarted            EventType = "bot_started"
	EventBotEvidenceExtracted  EventType = "bot_evidence_extracted"
	EventBotCatalogChecked     EventType = "bot_catalog_checked"
	EventBotOpenLibraryChecked EventType = "bot_openlibrary_checked"
	EventBotConsortiumChecked  EventType = "bot_consortium_checked"
	EventBotRefined            EventType = "bot_refined"
	EventBotAssessed           EventType = "bot_assessed"
	EventBotActionTaken        EventType = "bot_action_taken"
	EventBotCompleted          EventType = "bot_completed"
	EventBotError              EventType = "bot_error"
)

var eventTypes = map[EventType]struct{}{
	EventSubmitted: {}, EventStatusChanged: {}, EventNoteAdded: {},
	EventBotStarted: {}, EventBotEvidenceExtracted: {}, EventBotCatalogChecked: {},
	EventBotOpenLibraryChecked: {}, EventBotConsortiumChecked: {}, EventBotRefined: {},
	EventBotAssessed: {}, EventBotActionTaken: {}, EventBotCompleted: {}, EventBotError: {},
}

// Valid reports whether t belongs to the closed enumeration.
func (t EventType) Valid() bool {
	_, ok := eventTypes[t]
	return ok
}

// Request is one purchase suggestion with the fields the bot reads and writes.
type Request struct {
	ID               string
	CreatedAt        time.Time
	PatronRecordID   int64
	RawQuery         string
	FormatPreference string
	PatronNotes      string
	Status           StaffStatus
	StaffNotes       string
	UpdatedAt        *time.Time

	BotStatus      BotStatus
	BotProcessedAt *time.Time
	BotError       string

	EvidencePacketJSON  string
	EvidenceExtractedAt *time.Time

	CatalogMatch        catalog.Match
	CatalogHoldingsJSON string
	CatalogCheckedAt    *time.Time

	OpenLibraryFound          *bool
	OpenLibraryEnrichmentJSON string
	OpenLibraryCheckedAt      *time.Time

	ConsortiumAvailable   *bool
	ConsortiumSourcesJSON string
	ConsortiumCheckedAt   *time.Time

	RefinedTitle         string
	RefinedAuthor        string
	RefinedISBN          string
	AuthoritySource      string
	RefinementConfidence *float64

	AssessmentJSON string
	BotNotes       string

	BotAction   string
	BotActionAt *time.Time
}

// EvidencePacket decodes the stored packet. It returns nil when none has been
// extracted yet.
func (r *Request) EvidencePacket() (*evidence.Packet, error) {
	if r == nil || r.EvidencePacketJSON == "" {
		return nil, nil
	}
	return evidence.Parse([]byte(r.EvidencePacketJSON))
}

// CandidateSets decodes the stored catalog artifact.
func (r *Request) CandidateSets() (*catalog.CandidateSets, error) {
	if r == nil || r.CatalogHoldingsJSON == "" {
		return nil, nil
	}
	return catalog.ParseCandidateSets([]byte(r.CatalogHoldingsJSON))
}

// Enrichment decodes the stored Open Library result.
func (r *Request) Enrichment() (*openlibrary.Enrichment, error) {
	if r == nil || r.OpenLibraryEnrichmentJSON == "" {
		return nil, nil
	}
	return openlibrary.ParseEnrichment([]byte(r.OpenLibraryEnrichmentJSON))
}

// CatalogChecked reports whether the catalog stage has recorded a result.
func (r *Request) CatalogChecked() bool {
	return r != nil && r.CatalogCheckedAt != nil
}

// OpenLibraryChecked reports whether enrichment already ran for this request.
func (r *Request) OpenLibraryChecked() bool {
	return r != nil && r.OpenLibraryCheckedAt != nil
}

// Event is one append-only audit record.
type Event struct {
	ID          string
	RequestID   string
	Timestamp   time.Time
	ActorID     string
	Type        EventType
	PayloadJSON string
}

// Payload decodes the event payload for display. Payloads are observational
// and must not drive control flow.
func (e Event) Payload() (map[string]any, error) {
	if e.PayloadJSON == "" {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(e.PayloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	return payload, nil
}

// Run records one batch execution.
type Run struct {
	ID             string
	StartedAt      time.Time
	CompletedAt    *time.Time
	Status         RunStatus
	Processed      int
	Errored        int
	ConfigSnapshot string
	ErrorMessage   string
}

// Submission carries the patron-facing inputs for a new request.
type Submission struct {
	PatronRecordID   int64
	RawQuery         string
	FormatPreference string
	PatronNotes      string
}

// ConsortiumResult is the stored consortium availability outcome.
type ConsortiumResult struct {
	Available bool
	Sources   []map[string]any
}

// Refinement is the stored input refinement outcome.
type Refinement struct {
	Title      string
	Author     string
	ISBN       string
	Source     string
	Confidence *float64
}
