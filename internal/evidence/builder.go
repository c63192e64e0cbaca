package evidence

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"suggestbot/internal/identifiers"
)

// Input is the raw patron submission.
type Input struct {
	OmniInput        string
	FormatPreference string
	Notes            string
}

// Builder constructs packets. Now defaults to time.Now and only feeds
// created_utc.
type Builder struct {
	Now func() time.Time
}

// Build constructs a packet using the wall clock.
func Build(in Input) Packet {
	return Builder{}.Build(in)
}

// Build scans omni input plus notes for identifiers, year, format, and
// language. Title and author heuristics only look at the omni input.
func (b Builder) Build(in Input) Packet {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	combined := in.OmniInput
	if in.Notes != "" {
		combined += " " + in.Notes
	}
	found := identifiers.Extract(combined)

	hints := map[string]string{}
	if in.FormatPreference != "" {
		hints["format_preference"] = in.FormatPreference
	}

	signals := Signals{
		ValidISBNPresent:      found.ValidISBNPresent,
		ValidISSNPresent:      found.ValidISSNPresent,
		DOIPresent:            found.DOIPresent,
		URLPresent:            found.URLPresent,
		TitleLikeTextPresent:  looksLikeTitle(in.OmniInput),
		AuthorLikeTextPresent: looksLikeAuthor(in.OmniInput),
	}

	formats := formatHints(combined)
	if pref := in.FormatPreference; pref != "" {
		normalized := normalizeFormat(pref)
		if !slices.Contains(formats, normalized) {
			formats = append([]string{normalized}, formats...)
		}
	}

	warnings := []string{}
	if len(found.ISBN) == 0 && !signals.TitleLikeTextPresent {
		warnings = append(warnings, "No ISBN found and input does not appear to contain a clear title")
	}
	errs := []string{}
	if utf8.RuneCountInString(strings.TrimSpace(in.OmniInput)) < 3 {
		errs = append(errs, "Input too short to process")
	}

	urls := make([]URL, 0, len(found.URLs))
	for _, record := range found.URLs {
		entry := URL{
			URL:          record.URL,
			Domain:       record.Domain,
			ClassifiedAs: string(record.ClassifiedAs),
		}
		if record.NormalizedURL != record.URL {
			entry.NormalizedURL = record.NormalizedURL
		}
		if len(record.ExtractedIDs) > 0 {
			entry.ExtractedIDs = record.ExtractedIDs
		}
		urls = append(urls, entry)
	}

	return Packet{
		SchemaVersion: SchemaVersion,
		CreatedUTC:    now().UTC().Format(time.RFC3339Nano),
		Inputs: Inputs{
			OmniInput:        in.OmniInput,
			NarrativeContext: in.Notes,
			StructuredHints:  hints,
		},
		Identifiers: Identifiers{
			ISBN:        found.ISBN,
			ISSN:        found.ISSN,
			DOI:         found.DOI,
			WikidataQID: []string{},
			URLs:        urls,
		},
		Extracted: Extracted{
			TitleGuess:    titleGuess(in.OmniInput),
			AuthorGuess:   authorGuess(in.OmniInput),
			YearGuess:     yearGuess(combined),
			FormatHints:   formats,
			LanguageHints: languageHints(combined),
		},
		Quality: Quality{
			Signals:  signals,
			Warnings: warnings,
			Errors:   errs,
		},
	}
}

// Author patterns in priority order, most specific first.
var authorPatterns = []string{
	`\bby\s+([A-Z][a-z]+(?:\s+[A-Z]\.?\s+)?[A-Z][a-z]+(?:\s+(?:Jr|Sr|III|IV)\.?)?)`,
	`\bby\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`,
	`[-\x{2013}\x{2014}]\s*([A-Z][a-z]+\s+[A-Z][a-z]+)`,
	`\bauthor[:\s]+([A-Z][a-z]+\s+[A-Z][a-z]+)`,
}

var (
	authorExact   = compileAll("", authorPatterns)
	authorFolded  = compileAll("(?i)", authorPatterns)
	bareByPattern = regexp.MustCompile(`(?i)\bby\s+\w`)
	byTailPattern = regexp.MustCompile(`(?im)\bby\s+\w.*$`)

	urlStrip       = regexp.MustCompile(`https?://\S+`)
	digitRunStrip  = regexp.MustCompile(`\b\d{10,13}\b`)
	issnShapeStrip = regexp.MustCompile(`\b\d{4}-\d{4}\b`)
	quotedSpan     = regexp.MustCompile(`["'][^"']{3,}["']`)
	doubleQuoted   = regexp.MustCompile(`"([^"]{3,})"`)
	singleQuoted   = regexp.MustCompile(`'([^']{3,})'`)
	sentenceSplit  = regexp.MustCompile(`[.\n]`)
	yearPattern    = regexp.MustCompile(`\b(19[5-9]\d|20[0-3]\d)\b`)
)

func compileAll(prefix string, patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(prefix+pattern))
	}
	return compiled
}

func looksLikeTitle(text string) bool {
	stripped := urlStrip.ReplaceAllString(text, "")
	stripped = digitRunStrip.ReplaceAllString(stripped, "")
	stripped = issnShapeStrip.ReplaceAllString(stripped, "")

	if quotedSpan.MatchString(stripped) {
		return true
	}
	capitalized := 0
	for _, word := range strings.Fields(stripped) {
		first, _ := utf8.DecodeRuneInString(word)
		if unicode.IsUpper(first) && utf8.RuneCountInString(word) > 1 {
			capitalized++
		}
	}
	return capitalized >= 2
}

func looksLikeAuthor(text string) bool {
	for _, pattern := range authorFolded {
		if pattern.MatchString(text) {
			return true
		}
	}
	return bareByPattern.MatchString(text)
}

func authorGuess(text string) string {
	for _, pattern := range authorExact {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func titleGuess(text string) string {
	for _, pattern := range []*regexp.Regexp{doubleQuoted, singleQuoted} {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	cleaned := byTailPattern.ReplaceAllString(text, "")
	for _, pattern := range authorFolded {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	first := strings.TrimSpace(sentenceSplit.Split(cleaned, 2)[0])
	if utf8.RuneCountInString(first) < 3 {
		return ""
	}
	if runes := []rune(first); len(runes) > 100 {
		return string(runes[:100])
	}
	return first
}

// yearGuess returns the most recent plausible publication year, or 0.
func yearGuess(text string) int {
	best := 0
	for _, match := range yearPattern.FindAllString(text, -1) {
		if year, err := strconv.Atoi(match); err == nil && year > best {
			best = year
		}
	}
	return best
}

type keyword struct {
	term  string
	value string
}

// Scan order matters: the first synonym seen decides the hint position.
var formatKeywords = []keyword{
	{"hardcover", "hardcover"},
	{"hardback", "hardcover"},
	{"paperback", "paperback"},
	{"softcover", "paperback"},
	{"ebook", "ebook"},
	{"e-book", "ebook"},
	{"kindle", "ebook"},
	{"audiobook", "audiobook"},
	{"audio book", "audiobook"},
	{"audio", "audiobook"},
	{"cd", "audiobook"},
	{"mp3", "audiobook"},
	{"large print", "large_print"},
	{"largeprint", "large_print"},
	{"dvd", "dvd"},
	{"blu-ray", "bluray"},
	{"bluray", "bluray"},
}

var languageKeywords = []keyword{
	{"english", "en"},
	{"spanish", "es"},
	{"french", "fr"},
	{"german", "de"},
	{"italian", "it"},
	{"portuguese", "pt"},
	{"chinese", "zh"},
	{"japanese", "ja"},
	{"korean", "ko"},
	{"russian", "ru"},
	{"arabic", "ar"},
	{"hebrew", "he"},
}

func scanKeywords(text string, table []keyword) []string {
	folded := cases.Fold().String(text)
	hints := []string{}
	for _, kw := range table {
		if strings.Contains(folded, kw.term) && !slices.Contains(hints, kw.value) {
			hints = append(hints, kw.value)
		}
	}
	return hints
}

func formatHints(text string) []string { return scanKeywords(text, formatKeywords) }

func languageHints(text string) []string { return scanKeywords(text, languageKeywords) }

// normalizeFormat maps a format preference to its tag, passing unknown values
// through lowercased.
func normalizeFormat(pref string) string {
	folded := cases.Fold().String(pref)
	for _, kw := range formatKeywords {
		if kw.term == folded {
			return kw.value
		}
	}
	return folded
}
