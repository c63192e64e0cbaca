package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"suggestbot/internal/evidence"
	"suggestbot/internal/identifiers"
	"suggestbot/internal/logging"
)

const (
	maxISBNAttempts   = 3
	maxItemsPerRecord = 5
	availableStatus   = "-"
)

// Matcher runs the tiered catalog search for an evidence packet.
type Matcher struct {
	source      Source
	searchLimit int
	itemLimit   int
	now         func() time.Time
	logger      *slog.Logger
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithLimits overrides the per-query bib and item limits.
func WithLimits(search, items int) MatcherOption {
	return func(m *Matcher) {
		if search > 0 {
			m.searchLimit = search
		}
		if items > 0 {
			m.itemLimit = items
		}
	}
}

// WithClock overrides the timestamp source for created_utc.
func WithClock(now func() time.Time) MatcherOption {
	return func(m *Matcher) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger attaches a logger for tier diagnostics.
func WithLogger(logger *slog.Logger) MatcherOption {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMatcher returns a matcher over source.
func NewMatcher(source Source, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		source:      source,
		searchLimit: 10,
		itemLimit:   50,
		now:         time.Now,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Search runs the identifier, title+author, and title-only tiers in order and
// stops at the first tier that yields a candidate. Tier errors are recorded in
// the artifact and never abort later tiers.
func (m *Matcher) Search(ctx context.Context, packet *evidence.Packet) (CandidateSets, Strategy) {
	sets := NewCandidateSets(m.now())
	source := SourceResults{SourceName: m.source.Name(), Results: []SearchResult{}}
	strategy := StrategyNone

	if packet == nil {
		sets.Sources = append(sets.Sources, source)
		return sets, strategy
	}

	isbns := packet.Identifiers.ISBN
	if len(isbns) > maxISBNAttempts {
		isbns = isbns[:maxISBNAttempts]
	}
	for _, isbn := range isbns {
		strategy = StrategyISBN
		result := m.run(ctx, "isbn:"+isbn, func() (SearchPage, error) {
			return m.source.SearchByIdentifier(ctx, isbn, m.searchLimit)
		})
		source.Results = append(source.Results, result)
		if len(result.Candidates) > 0 {
			m.logger.Debug("isbn tier matched",
				logging.String("isbn", isbn),
				logging.Int("candidates", len(result.Candidates)),
			)
			break
		}
	}

	if !anyCandidates(source.Results) {
		title := strings.TrimSpace(packet.Extracted.TitleGuess)
		author := strings.TrimSpace(packet.Extracted.AuthorGuess)
		switch {
		case title != "" && author != "":
			strategy = StrategyTitleAuthor
			query := fmt.Sprintf("title:%s author:%s", title, author)
			source.Results = append(source.Results, m.run(ctx, query, func() (SearchPage, error) {
				return m.source.SearchByText(ctx, title, author, m.searchLimit)
			}))
		case title != "":
			strategy = StrategyTitleOnly
			source.Results = append(source.Results, m.run(ctx, "title:"+title, func() (SearchPage, error) {
				return m.source.SearchByText(ctx, title, "", m.searchLimit)
			}))
		}
	}

	sets.Sources = append(sets.Sources, source)
	return sets, strategy
}

func (m *Matcher) run(ctx context.Context, query string, search func() (SearchPage, error)) SearchResult {
	result := SearchResult{QueryString: query, Candidates: []Candidate{}}
	page, err := search()
	if err != nil {
		logging.WarnWithContext(m.logger, "catalog tier failed", "catalog_tier_failed",
			logging.String("query", query),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check sierra.api_base and credentials"),
			logging.String(logging.FieldImpact, "tier recorded with error; later tiers still run"),
		)
		result.Error = err.Error()
		return result
	}

	var availabilityErrs []string
	for i, bib := range page.Entries {
		var items ItemPage
		fetched := false
		if bib.ID != "" {
			itemPage, err := m.source.Availability(ctx, []string{bib.ID}, m.itemLimit)
			if err != nil {
				availabilityErrs = append(availabilityErrs, fmt.Sprintf("availability %s: %v", bib.ID, err))
			} else {
				items = itemPage
				fetched = true
			}
		} else {
			fetched = true
		}
		result.Candidates = append(result.Candidates, BibToCandidate(m.source.Name(), bib, i+1, items, fetched))
	}
	if len(availabilityErrs) > 0 {
		result.Error = strings.Join(availabilityErrs, "; ")
	}
	return result
}

func anyCandidates(results []SearchResult) bool {
	for _, r := range results {
		if len(r.Candidates) > 0 {
			return true
		}
	}
	return false
}

// BibToCandidate maps a source record to a candidate. When withItems is true
// the availability summary is attached, with at most five item details.
func BibToCandidate(sourceName string, bib Bib, rank int, page ItemPage, withItems bool) Candidate {
	id := bib.ID
	if id == "" {
		id = "unknown"
	}
	title := bib.Title
	if title == "" {
		title = "Unknown Title"
	}
	prefix := strings.TrimSuffix(sourceName, "_catalog")
	if prefix == "" {
		prefix = "catalog"
	}

	candidate := Candidate{
		CandidateID:     prefix + "_bib_" + id,
		Title:           title,
		Authors:         splitAuthors(bib.Author),
		Publisher:       bib.Publisher,
		PublicationYear: bib.PublishYear,
		Language:        bib.Language.Code,
		Format:          bib.MaterialType.Value,
		SourceRank:      rank,
		SourceRecordRef: RecordRef{BibID: bib.ID},
	}
	if candidate.Format == "" {
		candidate.Format = bib.MaterialType.Code
	}
	if len(bib.ISBN) > 0 {
		candidate.Identifiers = map[string][]string{"isbn": append([]string(nil), bib.ISBN...)}
	}

	if withItems {
		items := page.Entries
		available := 0
		for _, item := range items {
			if item.StatusCode == availableStatus {
				available++
			}
		}
		// The item page is capped; the reported total covers every copy.
		total := max(len(items), page.Total)
		candidate.SourceRecordRef.TotalCopies = &total
		candidate.SourceRecordRef.AvailableCopies = &available
		candidate.SourceRecordRef.Availability = "unavailable"
		if available > 0 {
			candidate.SourceRecordRef.Availability = "available"
		}
		limit := min(len(items), maxItemsPerRecord)
		summaries := make([]ItemSummary, 0, limit)
		for _, item := range items[:limit] {
			summaries = append(summaries, ItemSummary{
				ID:         item.ID,
				Location:   item.LocationName,
				Status:     item.StatusDisplay,
				CallNumber: item.CallNumber,
			})
		}
		candidate.SourceRecordRef.Items = summaries
	}
	return candidate
}

// splitAuthors splits on "; " first, then " and ", else keeps one author.
func splitAuthors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var parts []string
	switch {
	case strings.Contains(raw, "; "):
		parts = strings.Split(raw, "; ")
	case strings.Contains(strings.ToLower(raw), " and "):
		parts = splitFold(raw, " and ")
	default:
		return []string{raw}
	}
	authors := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			authors = append(authors, trimmed)
		}
	}
	return authors
}

// splitFold splits s on sep ignoring ASCII case and preserves the original casing.
func splitFold(s, sep string) []string {
	lower := strings.ToLower(s)
	var parts []string
	for {
		idx := strings.Index(lower, sep)
		if idx < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:idx])
		s = s[idx+len(sep):]
		lower = lower[idx+len(sep):]
	}
}

// Classify returns exact when any candidate shares a canonical ISBN with the
// packet, partial when candidates exist without overlap, and none otherwise.
func Classify(sets CandidateSets, packet *evidence.Packet) Match {
	if !sets.HasCandidates() {
		return MatchNone
	}
	wanted := make(map[string]struct{})
	if packet != nil {
		for _, isbn := range packet.Identifiers.ISBN {
			if canonical, ok := identifiers.CanonicalizeISBN(isbn); ok {
				wanted[canonical] = struct{}{}
			}
		}
	}
	if len(wanted) > 0 {
		for _, candidate := range sets.AllCandidates() {
			for _, isbn := range candidate.Identifiers["isbn"] {
				if canonical, ok := identifiers.CanonicalizeISBN(isbn); ok {
					if _, hit := wanted[canonical]; hit {
						return MatchExact
					}
				}
			}
		}
	}
	return MatchPartial
}
