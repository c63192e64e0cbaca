package openlibrary

import (
	"encoding/json"
	"fmt"

	"suggestbot/internal/services"
)

// SchemaVersion is written into every Enrichment.
const SchemaVersion = "1.0.0"

// Confidence grades how an enrichment match was obtained.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Author is an edition author reference with its resolved display name.
type Author struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// Edition is one Open Library book record.
type Edition struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	Authors       []Author `json:"authors,omitempty"`
	Publishers    []string `json:"publishers,omitempty"`
	PublishDate   string   `json:"publish_date,omitempty"`
	ISBN10        []string `json:"isbn_10,omitempty"`
	ISBN13        []string `json:"isbn_13,omitempty"`
	NumberOfPages int      `json:"number_of_pages,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
	Covers        []int    `json:"covers,omitempty"`
	Works         []string `json:"works,omitempty"`
}

// Work is the Open Library work record an edition belongs to.
type Work struct {
	Key              string   `json:"key"`
	Title            string   `json:"title,omitempty"`
	Description      string   `json:"description,omitempty"`
	Subjects         []string `json:"subjects,omitempty"`
	FirstPublishDate string   `json:"first_publish_date,omitempty"`
	Covers           []int    `json:"covers,omitempty"`
}

// SearchResult is one hit from the search endpoint.
type SearchResult struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name,omitempty"`
	FirstPublishYear int      `json:"first_publish_year,omitempty"`
	ISBN             []string `json:"isbn,omitempty"`
	EditionCount     int      `json:"edition_count,omitempty"`
}

// Enrichment is the stored result of one enrichment attempt.
type Enrichment struct {
	SchemaVersion   string         `json:"schema_version"`
	CreatedUTC      string         `json:"created_utc"`
	SourceQuery     string         `json:"source_query"`
	MatchConfidence Confidence     `json:"match_confidence"`
	Edition         *Edition       `json:"edition,omitempty"`
	Work            *Work          `json:"work,omitempty"`
	SearchResults   []SearchResult `json:"search_results,omitempty"`
	CoverURL        string         `json:"cover_url,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Found reports whether the attempt matched anything.
func (e Enrichment) Found() bool {
	return e.MatchConfidence != ConfidenceNone && e.MatchConfidence != ""
}

// Marshal encodes the enrichment for storage.
func (e Enrichment) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal enrichment: %w", err)
	}
	return data, nil
}

// ParseEnrichment decodes a stored enrichment, ignoring unknown fields.
func ParseEnrichment(data []byte) (*Enrichment, error) {
	var enrichment Enrichment
	if err := json.Unmarshal(data, &enrichment); err != nil {
		return nil, services.Wrap(services.ErrValidation, "openlibrary", "parse enrichment", "invalid json", err)
	}
	if enrichment.MatchConfidence == "" {
		enrichment.MatchConfidence = ConfidenceNone
	}
	return &enrichment, nil
}
