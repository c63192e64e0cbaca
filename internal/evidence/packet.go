package evidence

import (
	"encoding/json"
	"fmt"
	"strings"

	"suggestbot/internal/services"
)

// SchemaVersion is written into every packet this package builds.
const SchemaVersion = "1.0.0"

// Packet is the versioned evidence snapshot for one purchase request.
type Packet struct {
	SchemaVersion string      `json:"schema_version"`
	CreatedUTC    string      `json:"created_utc"`
	Inputs        Inputs      `json:"inputs"`
	Identifiers   Identifiers `json:"identifiers"`
	Extracted     Extracted   `json:"extracted"`
	Quality       Quality     `json:"quality"`
}

// Inputs captures what the patron submitted.
type Inputs struct {
	OmniInput        string            `json:"omni_input"`
	NarrativeContext string            `json:"narrative_context,omitempty"`
	StructuredHints  map[string]string `json:"structured_hints"`
}

// Identifiers holds canonical identifiers found in the submission.
type Identifiers struct {
	ISBN        []string `json:"isbn"`
	ISSN        []string `json:"issn"`
	DOI         []string `json:"doi"`
	WikidataQID []string `json:"wikidata_qid"`
	URLs        []URL    `json:"urls"`
}

// URL is the packet form of a discovered URL. NormalizedURL is set only when
// it differs from URL.
type URL struct {
	URL           string              `json:"url"`
	NormalizedURL string              `json:"normalized_url,omitempty"`
	Domain        string              `json:"domain"`
	ClassifiedAs  string              `json:"classified_as"`
	ExtractedIDs  map[string][]string `json:"extracted_ids,omitempty"`
}

// Extracted holds best-effort metadata guesses. Empty strings and a zero year
// mean "no guess".
type Extracted struct {
	TitleGuess     string          `json:"title_guess,omitempty"`
	AuthorGuess    string          `json:"author_guess,omitempty"`
	SeriesGuess    string          `json:"series_guess,omitempty"`
	VolumeGuess    string          `json:"volume_guess,omitempty"`
	PublisherGuess string          `json:"publisher_guess,omitempty"`
	EditionGuess   string          `json:"edition_guess,omitempty"`
	YearGuess      int             `json:"year_guess,omitempty"`
	FormatHints    []string        `json:"format_hints"`
	LanguageHints  []string        `json:"language_hints"`
	LLMExtraction  json.RawMessage `json:"llm_extraction,omitempty"`
}

// Signals are boolean quality indicators about the submission.
type Signals struct {
	ValidISBNPresent      bool `json:"valid_isbn_present"`
	ValidISSNPresent      bool `json:"valid_issn_present"`
	DOIPresent            bool `json:"doi_present"`
	URLPresent            bool `json:"url_present"`
	TitleLikeTextPresent  bool `json:"title_like_text_present"`
	AuthorLikeTextPresent bool `json:"author_like_text_present"`
}

// Quality groups signals with human-readable warnings and errors.
type Quality struct {
	Signals  Signals  `json:"signals"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// HasISBN reports whether the packet carries at least one canonical ISBN.
func (p *Packet) HasISBN() bool {
	return p != nil && len(p.Identifiers.ISBN) > 0
}

// Marshal encodes the packet for storage.
func (p *Packet) Marshal() ([]byte, error) {
	if p == nil {
		return nil, services.Wrap(services.ErrValidation, "evidence", "marshal packet", "packet is nil", nil)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal evidence packet: %w", err)
	}
	return data, nil
}

// Parse decodes a stored packet. Unknown fields are ignored so packets written
// by newer schema versions still load. Missing lists decode as empty.
func Parse(data []byte) (*Packet, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, services.Wrap(services.ErrValidation, "evidence", "parse packet", "empty payload", nil)
	}
	var packet Packet
	if err := json.Unmarshal(data, &packet); err != nil {
		return nil, services.Wrap(services.ErrValidation, "evidence", "parse packet", "invalid packet json", err)
	}
	packet.fillEmpty()
	return &packet, nil
}

func (p *Packet) fillEmpty() {
	if p.Inputs.StructuredHints == nil {
		p.Inputs.StructuredHints = map[string]string{}
	}
	p.Identifiers.ISBN = nonNil(p.Identifiers.ISBN)
	p.Identifiers.ISSN = nonNil(p.Identifiers.ISSN)
	p.Identifiers.DOI = nonNil(p.Identifiers.DOI)
	p.Identifiers.WikidataQID = nonNil(p.Identifiers.WikidataQID)
	if p.Identifiers.URLs == nil {
		p.Identifiers.URLs = []URL{}
	}
	p.Extracted.FormatHints = nonNil(p.Extracted.FormatHints)
	p.Extracted.LanguageHints = nonNil(p.Extracted.LanguageHints)
	p.Quality.Warnings = nonNil(p.Quality.Warnings)
	p.Quality.Errors = nonNil(p.Quality.Errors)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
