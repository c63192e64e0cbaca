package identifiers

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

var (
	isbn13Pattern = regexp.MustCompile(`\b(97[89][\- ]?\d[\- ]?\d{3}[\- ]?\d{5}[\- ]?\d)\b`)
	isbn10Pattern = regexp.MustCompile(`\b(\d{9}[\dXx]|\d[\- ]?\d{3}[\- ]?\d{5}[\- ]?[\dXx])\b`)
	issnPattern   = regexp.MustCompile(`\b(\d{4}[\- ]?\d{3}[\dXx])\b`)
	doiPattern    = regexp.MustCompile(`(?i)\b(10\.\d{4,}/\S+)`)
	doiURLPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:dx\.)?doi\.org/(10\.\d{4,}/\S+)`)
)

// Result collects every identifier found in a piece of text. Lists hold
// canonical values in discovery order without duplicates.
type Result struct {
	ISBN []string    `json:"isbn"`
	ISSN []string    `json:"issn"`
	DOI  []string    `json:"doi"`
	URLs []URLRecord `json:"urls"`

	ValidISBNPresent bool `json:"valid_isbn_present"`
	ValidISSNPresent bool `json:"valid_issn_present"`
	DOIPresent       bool `json:"doi_present"`
	URLPresent       bool `json:"url_present"`
}

// Normalize applies NFKC so full-width digits and compatibility punctuation
// match the ASCII patterns.
func Normalize(text string) string {
	return norm.NFKC.String(text)
}

// Extract scans text for ISBNs (13 before 10), ISSNs, DOIs (resolver URLs
// before bare DOIs), and URLs. ISBNs mined from URLs are merged in last.
func Extract(text string) Result {
	text = Normalize(text)
	result := Result{
		ISBN: []string{},
		ISSN: []string{},
		DOI:  []string{},
	}

	seenISBN := make(map[string]struct{})
	addISBN := func(raw string) {
		canonical, ok := CanonicalizeISBN(raw)
		if !ok {
			return
		}
		if _, dup := seenISBN[canonical]; dup {
			return
		}
		seenISBN[canonical] = struct{}{}
		result.ISBN = append(result.ISBN, canonical)
	}

	for _, pattern := range []*regexp.Regexp{isbn13Pattern, isbn10Pattern} {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			addISBN(m[1])
		}
	}

	seenISSN := make(map[string]struct{})
	for _, m := range issnPattern.FindAllStringSubmatch(text, -1) {
		canonical, ok := CanonicalizeISSN(m[1])
		if !ok {
			continue
		}
		if _, dup := seenISSN[canonical]; dup {
			continue
		}
		seenISSN[canonical] = struct{}{}
		result.ISSN = append(result.ISSN, canonical)
	}

	seenDOI := make(map[string]struct{})
	for _, pattern := range []*regexp.Regexp{doiURLPattern, doiPattern} {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			normalized := NormalizeDOI(m[1])
			if normalized == "" {
				continue
			}
			if _, dup := seenDOI[normalized]; dup {
				continue
			}
			seenDOI[normalized] = struct{}{}
			result.DOI = append(result.DOI, normalized)
		}
	}

	result.URLs = ExtractURLs(text)
	for _, record := range result.URLs {
		for _, isbn := range record.ExtractedIDs["isbn"] {
			addISBN(isbn)
		}
	}

	result.ValidISBNPresent = len(result.ISBN) > 0
	result.ValidISSNPresent = len(result.ISSN) > 0
	result.DOIPresent = len(result.DOI) > 0
	result.URLPresent = len(result.URLs) > 0
	return result
}
