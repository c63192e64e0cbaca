package identifiers

import (
	"net/url"
	"regexp"
	"strings"
)

// Classification buckets a URL by the kind of site it points to.
type Classification string

const (
	ClassRetailer       Classification = "retailer"
	ClassPublisher      Classification = "publisher"
	ClassDiscovery      Classification = "discovery"
	ClassLibraryCatalog Classification = "library_catalog"
	ClassUnknown        Classification = "unknown"
)

// URLRecord is one URL found in free text.
type URLRecord struct {
	URL           string              `json:"url"`
	NormalizedURL string              `json:"normalized_url"`
	Domain        string              `json:"domain"`
	ClassifiedAs  Classification      `json:"classified_as"`
	ExtractedIDs  map[string][]string `json:"extracted_ids"`
}

var retailerDomains = map[string]struct{}{
	"amazon.com": {}, "amazon.co.uk": {}, "amazon.ca": {}, "amazon.de": {}, "amazon.fr": {},
	"barnesandnoble.com": {}, "bn.com": {}, "bookshop.org": {}, "betterworldbooks.com": {},
	"abebooks.com": {}, "alibris.com": {}, "thriftbooks.com": {}, "powells.com": {},
	"indiebound.org": {}, "bookdepository.com": {},
}

var discoveryDomains = map[string]struct{}{
	"goodreads.com": {}, "librarything.com": {}, "storygraph.com": {}, "openlibrary.org": {},
	"worldcat.org": {}, "oclc.org": {}, "google.com": {},
}

var publisherDomains = map[string]struct{}{
	"penguinrandomhouse.com": {}, "harpercollins.com": {}, "simonandschuster.com": {},
	"hachettebookgroup.com": {}, "macmillan.com": {}, "scholastic.com": {}, "oup.com": {},
	"cambridge.org": {}, "springer.com": {}, "wiley.com": {}, "elsevier.com": {},
	"taylorandfrancis.com": {}, "sagepub.com": {},
}

var libraryCatalogPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.lib\.`),
	regexp.MustCompile(`(?i)catalog\.`),
	regexp.MustCompile(`(?i)/catalog/`),
	regexp.MustCompile(`(?i)opac`),
	regexp.MustCompile(`(?i)encore`),
	regexp.MustCompile(`(?i)bibliocommons`),
}

var (
	asinPattern        = regexp.MustCompile(`(?i)/(?:dp|product|gp/product)/([A-Z0-9]{10})`)
	pathISBNPattern    = regexp.MustCompile(`(?:/isbn[/=]|/isbn$|/)(\d{10}|\d{13})\b`)
	goodreadsPattern   = regexp.MustCompile(`/book/show/(\d+)`)
	googleBooksPattern = regexp.MustCompile(`[?&]id=([A-Za-z0-9_-]+)`)
	oclcPattern        = regexp.MustCompile(`/oclc/(\d+)`)
	urlPattern         = regexp.MustCompile(`(?i)https?://[^\s<>"'\])]+`)
)

// BaseDomain reduces a host to its registered domain. Second-level suffixes
// such as co.uk keep three labels.
func BaseDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return host
	}
	switch parts[len(parts)-2] {
	case "co", "com", "org", "net", "gov":
		if len(parts) >= 3 {
			return strings.Join(parts[len(parts)-3:], ".")
		}
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// ClassifyURL buckets raw by domain. Malformed input yields ClassUnknown.
func ClassifyURL(raw string) Classification {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ClassUnknown
	}
	host := strings.ToLower(parsed.Host)
	base := BaseDomain(host)

	if _, ok := retailerDomains[base]; ok {
		return ClassRetailer
	}
	if _, ok := publisherDomains[base]; ok {
		return ClassPublisher
	}
	if _, ok := discoveryDomains[base]; ok {
		if base == "google.com" && !strings.HasPrefix(host, "books.") {
			return ClassUnknown
		}
		return ClassDiscovery
	}

	target := host + strings.ToLower(parsed.Path)
	for _, pattern := range libraryCatalogPatterns {
		if pattern.MatchString(target) {
			return ClassLibraryCatalog
		}
	}
	return ClassUnknown
}

// ExtractURLIDs mines identifiers embedded in a URL: isbn, asin, goodreads_id,
// google_books_id, and oclc. Keys are present only when something matched.
func ExtractURLIDs(raw string) map[string][]string {
	ids := make(map[string][]string)
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ids
	}
	host := strings.ToLower(parsed.Host)
	path := parsed.EscapedPath()
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	if strings.Contains(host, "amazon") {
		if m := asinPattern.FindStringSubmatch(path); m != nil {
			token := m[1]
			if allDigits(token) && ValidateISBN10(token) {
				ids["isbn"] = append(ids["isbn"], token)
			} else {
				ids["asin"] = append(ids["asin"], token)
			}
		}
	}

	for _, m := range pathISBNPattern.FindAllStringSubmatch(path, -1) {
		if canonical, ok := CanonicalizeISBN(m[1]); ok {
			ids["isbn"] = appendUnique(ids["isbn"], canonical)
		}
	}

	if strings.Contains(host, "goodreads") {
		if m := goodreadsPattern.FindStringSubmatch(path); m != nil {
			ids["goodreads_id"] = append(ids["goodreads_id"], m[1])
		}
	}
	if strings.Contains(host, "google") && strings.Contains(host, "books") {
		if m := googleBooksPattern.FindStringSubmatch(path); m != nil {
			ids["google_books_id"] = append(ids["google_books_id"], m[1])
		}
	}
	if strings.Contains(host, "worldcat") || strings.Contains(host, "oclc") {
		if m := oclcPattern.FindStringSubmatch(path); m != nil {
			ids["oclc"] = append(ids["oclc"], m[1])
		}
	}
	return ids
}

// ParseURL builds the full record for one URL.
func ParseURL(raw string) URLRecord {
	normalized := strings.TrimRight(raw, ".,;:!?")
	record := URLRecord{
		URL:           raw,
		NormalizedURL: normalized,
		ClassifiedAs:  ClassUnknown,
		ExtractedIDs:  map[string][]string{},
	}
	if parsed, err := url.Parse(normalized); err == nil {
		record.Domain = strings.ToLower(parsed.Host)
		record.ClassifiedAs = ClassifyURL(normalized)
		record.ExtractedIDs = ExtractURLIDs(normalized)
	}
	return record
}

// ExtractURLs finds every http(s) URL in text, deduplicated on the normalized form.
func ExtractURLs(text string) []URLRecord {
	matches := urlPattern.FindAllString(text, -1)
	records := make([]URLRecord, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		normalized := strings.TrimRight(match, ".,;:!?")
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		records = append(records, ParseURL(match))
	}
	return records
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
