package openlibrary

import (
	"context"
	"log/slog"
	"time"

	"suggestbot/internal/evidence"
	"suggestbot/internal/logging"
)

// Enricher looks up secondary metadata for an evidence packet.
type Enricher struct {
	source   Source
	allowPII bool
	now      func() time.Time
	logger   *slog.Logger
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithAllowPII disables scrubbing of title and author before they leave the
// process.
func WithAllowPII(allow bool) EnricherOption {
	return func(e *Enricher) { e.allowPII = allow }
}

// WithEnricherClock overrides the timestamp source.
func WithEnricherClock(now func() time.Time) EnricherOption {
	return func(e *Enricher) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEnricherLogger attaches a logger.
func WithEnricherLogger(logger *slog.Logger) EnricherOption {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEnricher builds an Enricher over source.
func NewEnricher(source Source, opts ...EnricherOption) *Enricher {
	e := &Enricher{source: source, now: time.Now, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich runs the ISBN lookup, falling back to a title/author search. Lookup
// failures are reported on the returned Enrichment, never as a Go error.
func (e *Enricher) Enrich(ctx context.Context, packet *evidence.Packet) Enrichment {
	result := Enrichment{
		SchemaVersion:   SchemaVersion,
		CreatedUTC:      e.now().UTC().Format(time.RFC3339),
		MatchConfidence: ConfidenceNone,
	}
	if packet == nil {
		return result
	}

	if len(packet.Identifiers.ISBN) > 0 {
		isbn := packet.Identifiers.ISBN[0]
		result.SourceQuery = "isbn:" + isbn
		edition, err := e.source.LookupISBN(ctx, isbn)
		if err != nil {
			return e.fail(result, err)
		}
		if edition != nil {
			result.Edition = edition
			result.MatchConfidence = ConfidenceHigh
			e.complete(ctx, &result)
			result.CoverURL = e.preferredCover(edition)
			return result
		}
	}

	title := packet.Extracted.TitleGuess
	author := packet.Extracted.AuthorGuess
	if !e.allowPII {
		title = Scrub(title)
		author = Scrub(author)
	}
	if title == "" {
		return result
	}

	result.SourceQuery = SearchQuery(title, author)
	hits, err := e.source.Search(ctx, title, author)
	if err != nil {
		return e.fail(result, err)
	}
	result.SearchResults = hits
	if len(hits) == 0 {
		return result
	}
	if author != "" {
		result.MatchConfidence = ConfidenceMedium
	} else {
		result.MatchConfidence = ConfidenceLow
	}

	best := hits[0]
	if len(best.ISBN) == 0 {
		return result
	}
	edition, err := e.source.LookupISBN(ctx, best.ISBN[0])
	if err != nil {
		return e.fail(result, err)
	}
	if edition != nil {
		result.Edition = edition
		e.complete(ctx, &result)
		if len(edition.Covers) > 0 {
			result.CoverURL = e.source.CoverURL("", edition.Covers[0], "M")
		}
	}
	return result
}

// complete resolves author names and the parent work. Failures here only
// leave fields empty.
func (e *Enricher) complete(ctx context.Context, result *Enrichment) {
	edition := result.Edition
	for i := range edition.Authors {
		author := &edition.Authors[i]
		if author.Key == "" || author.Name != "" {
			continue
		}
		name, err := e.source.AuthorName(ctx, author.Key)
		if err != nil {
			e.logger.Debug("author lookup failed", logging.String("author_key", author.Key), logging.Error(err))
			continue
		}
		author.Name = name
	}
	if len(edition.Works) == 0 {
		return
	}
	work, err := e.source.LookupWork(ctx, edition.Works[0])
	if err != nil {
		e.logger.Debug("work lookup failed", logging.String("work_key", edition.Works[0]), logging.Error(err))
		return
	}
	result.Work = work
}

func (e *Enricher) preferredCover(edition *Edition) string {
	switch {
	case len(edition.ISBN13) > 0:
		return e.source.CoverURL(edition.ISBN13[0], 0, "M")
	case len(edition.ISBN10) > 0:
		return e.source.CoverURL(edition.ISBN10[0], 0, "M")
	case len(edition.Covers) > 0:
		return e.source.CoverURL("", edition.Covers[0], "M")
	}
	return ""
}

func (e *Enricher) fail(result Enrichment, err error) Enrichment {
	logging.WarnWithContext(e.logger, "open library enrichment failed", "openlibrary_error",
		logging.String(logging.FieldErrorHint, "check openlibrary.base_url and network access"),
		logging.Error(err),
	)
	result.Error = err.Error()
	result.MatchConfidence = ConfidenceNone
	result.Edition = nil
	result.Work = nil
	result.CoverURL = ""
	return result
}
