package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"suggestbot/internal/services"
)

// SchemaVersion is written into every CandidateSets artifact.
const SchemaVersion = "1.0.0"

// Match summarizes a catalog search outcome.
type Match string

const (
	MatchExact   Match = "exact"
	MatchPartial Match = "partial"
	MatchNone    Match = "none"
)

// ParseMatch converts a stored value; anything unrecognized is "".
func ParseMatch(value string) Match {
	switch Match(strings.ToLower(strings.TrimSpace(value))) {
	case MatchExact:
		return MatchExact
	case MatchPartial:
		return MatchPartial
	case MatchNone:
		return MatchNone
	default:
		return ""
	}
}

// Strategy names the search tier that decided the outcome.
type Strategy string

const (
	StrategyISBN        Strategy = "isbn"
	StrategyTitleAuthor Strategy = "title_author"
	StrategyTitleOnly   Strategy = "title_only"
	StrategyNone        Strategy = "none"
)

// CodeValue is a coded field such as material type or language.
type CodeValue struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

// Bib is one bibliographic record as returned by a Source.
type Bib struct {
	ID           string
	Title        string
	Author       string
	ISBN         []string
	Publisher    string
	PublishYear  int
	MaterialType CodeValue
	Language     CodeValue
}

// Item is one physical copy attached to a bib.
type Item struct {
	ID            string
	BibIDs        []string
	LocationName  string
	StatusCode    string
	StatusDisplay string
	CallNumber    string
}

// SearchPage is one page of bib search results.
type SearchPage struct {
	Total   int
	Entries []Bib
}

// ItemPage is one page of item availability results.
type ItemPage struct {
	Total   int
	Entries []Item
}

// Source is the primary bibliographic catalog.
type Source interface {
	Name() string
	SearchByIdentifier(ctx context.Context, isbn string, limit int) (SearchPage, error)
	SearchByText(ctx context.Context, title, author string, limit int) (SearchPage, error)
	Availability(ctx context.Context, bibIDs []string, limit int) (ItemPage, error)
}

// ItemSummary is the per-copy detail kept on a candidate.
type ItemSummary struct {
	ID         string `json:"id"`
	Location   string `json:"location,omitempty"`
	Status     string `json:"status,omitempty"`
	CallNumber string `json:"call_number,omitempty"`
}

// RecordRef points back at the source record and carries availability.
type RecordRef struct {
	BibID           string        `json:"bib_id"`
	TotalCopies     *int          `json:"total_copies,omitempty"`
	AvailableCopies *int          `json:"available_copies,omitempty"`
	Availability    string        `json:"availability,omitempty"`
	Items           []ItemSummary `json:"items,omitempty"`
}

// Available reports whether at least one copy is on the shelf.
func (r RecordRef) Available() bool {
	return r.Availability == "available"
}

// Candidate is one catalog record surfaced by a search tier.
type Candidate struct {
	CandidateID     string              `json:"candidate_id"`
	Title           string              `json:"title"`
	Authors         []string            `json:"authors,omitempty"`
	Publisher       string              `json:"publisher,omitempty"`
	PublicationYear int                 `json:"publication_year,omitempty"`
	Language        string              `json:"language,omitempty"`
	Format          string              `json:"format,omitempty"`
	Identifiers     map[string][]string `json:"identifiers,omitempty"`
	SourceRank      int                 `json:"source_rank,omitempty"`
	SourceRecordRef RecordRef           `json:"source_record_ref"`
}

// SearchResult records one query against one source.
type SearchResult struct {
	QueryString string      `json:"query_string"`
	Candidates  []Candidate `json:"candidates"`
	Error       string      `json:"error,omitempty"`
}

// SourceResults groups every query issued to one source.
type SourceResults struct {
	SourceName string         `json:"source_name"`
	Results    []SearchResult `json:"results"`
}

// CandidateSets is the full search artifact kept for staff review.
type CandidateSets struct {
	SchemaVersion string          `json:"schema_version"`
	CreatedUTC    string          `json:"created_utc"`
	Sources       []SourceResults `json:"sources"`
}

// NewCandidateSets returns an empty artifact stamped with now.
func NewCandidateSets(now time.Time) CandidateSets {
	return CandidateSets{
		SchemaVersion: SchemaVersion,
		CreatedUTC:    now.UTC().Format(time.RFC3339Nano),
		Sources:       []SourceResults{},
	}
}

// AllCandidates flattens candidates across sources and queries in order.
func (s CandidateSets) AllCandidates() []Candidate {
	var all []Candidate
	for _, source := range s.Sources {
		for _, result := range source.Results {
			all = append(all, result.Candidates...)
		}
	}
	return all
}

// HasCandidates reports whether any query returned a record.
func (s CandidateSets) HasCandidates() bool {
	for _, source := range s.Sources {
		for _, result := range source.Results {
			if len(result.Candidates) > 0 {
				return true
			}
		}
	}
	return false
}

// Marshal encodes the artifact for storage.
func (s CandidateSets) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate sets: %w", err)
	}
	return data, nil
}

// ParseCandidateSets decodes a stored artifact, ignoring unknown fields.
func ParseCandidateSets(data []byte) (*CandidateSets, error) {
	var sets CandidateSets
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "parse candidate sets", "invalid json", err)
	}
	if sets.SchemaVersion == "" {
		sets.SchemaVersion = SchemaVersion
	}
	return &sets, nil
}
