package identifiers

import (
	"reflect"
	"testing"
)

func TestISBN13Checksum(t *testing.T) {
	if !ValidateISBN13("9780306406157") {
		t.Fatal("expected 9780306406157 to validate")
	}
	if ValidateISBN13("9780306406158") {
		t.Fatal("expected altered check digit to fail")
	}
	if !ValidateISBN13("978-0-306-40615-7") {
		t.Fatal("expected hyphenated ISBN-13 to validate")
	}
}

func TestISBN10Checksum(t *testing.T) {
	cases := map[string]bool{
		"0306406152":    true,
		"0-306-40615-2": true,
		"080442957X":    true,
		"080442957x":    true,
		"0306406153":    false,
		"X306406152":    false,
		"030640615":     false,
	}
	for input, want := range cases {
		if got := ValidateISBN10(input); got != want {
			t.Fatalf("ValidateISBN10(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestCanonicalizeISBN(t *testing.T) {
	got, ok := CanonicalizeISBN("0306406152")
	if !ok || got != "9780306406157" {
		t.Fatalf("CanonicalizeISBN = %q, %v", got, ok)
	}
	got, ok = CanonicalizeISBN("080442957X")
	if !ok || got != "9780804429573" {
		t.Fatalf("CanonicalizeISBN(X) = %q, %v", got, ok)
	}
	for _, bad := range []string{"", "12345", "0306406153", "9780306406158", "abcdefghij"} {
		if _, ok := CanonicalizeISBN(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestEveryValidISBN10ConvertsConsistently(t *testing.T) {
	// Walk all check digits for a handful of stems; exactly one is valid.
	stems := []string{"030640615", "080442957", "014044913", "123456789"}
	for _, stem := range stems {
		valid := 0
		for _, check := range "0123456789X" {
			candidate := stem + string(check)
			if !ValidateISBN10(candidate) {
				continue
			}
			valid++
			converted, ok := ISBN10To13(candidate)
			if !ok {
				t.Fatalf("ISBN10To13(%q) failed", candidate)
			}
			canonical, ok := CanonicalizeISBN(candidate)
			if !ok || canonical != converted {
				t.Fatalf("canonical %q != converted %q", canonical, converted)
			}
			if !ValidateISBN13(converted) {
				t.Fatalf("converted %q does not validate", converted)
			}
		}
		if valid != 1 {
			t.Fatalf("expected one valid check digit for %s, got %d", stem, valid)
		}
	}
}

func TestISSN(t *testing.T) {
	got, ok := CanonicalizeISSN("0317-8471")
	if !ok || got != "03178471" {
		t.Fatalf("CanonicalizeISSN = %q, %v", got, ok)
	}
	if _, ok := CanonicalizeISSN("0317-8472"); ok {
		t.Fatal("expected 0317-8472 to be rejected")
	}
	if !ValidateISSN("2434-561X") {
		t.Fatal("expected X check digit to validate")
	}
}

func TestNormalizeDOI(t *testing.T) {
	cases := map[string]string{
		"https://doi.org/10.1000/XYZ123":   "10.1000/xyz123",
		"http://dx.doi.org/10.1000/ABC":    "10.1000/abc",
		"DOI: 10.1000/Foo":                 "10.1000/foo",
		"HTTPS://DOI.ORG/10.5555/Mixed.Up": "10.5555/mixed.up",
	}
	for input, want := range cases {
		if got := NormalizeDOI(input); got != want {
			t.Fatalf("NormalizeDOI(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBaseDomain(t *testing.T) {
	cases := map[string]string{
		"www.amazon.com":      "amazon.com",
		"www.amazon.co.uk":    "amazon.co.uk",
		"books.google.com":    "google.com",
		"Catalog.Example.ORG": "example.org",
		"localhost":           "localhost",
		"amazon.com:8443":     "amazon.com",
	}
	for input, want := range cases {
		if got := BaseDomain(input); got != want {
			t.Fatalf("BaseDomain(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestClassifyURL(t *testing.T) {
	cases := map[string]Classification{
		"https://www.amazon.co.uk/dp/0306406152":          ClassRetailer,
		"https://www.penguinrandomhouse.com/books/1":      ClassPublisher,
		"https://www.goodreads.com/book/show/123":         ClassDiscovery,
		"https://books.google.com/books?id=abc":           ClassDiscovery,
		"https://www.google.com/search?q=book":            ClassUnknown,
		"https://catalog.mylibrary.org/record/1":          ClassLibraryCatalog,
		"https://mylibrary.bibliocommons.com/item/show/1": ClassLibraryCatalog,
		"https://example.com/catalog/item":                ClassLibraryCatalog,
		"https://example.com/blog":                        ClassUnknown,
		"://not a url":                                    ClassUnknown,
		"":                                                ClassUnknown,
	}
	for input, want := range cases {
		if got := ClassifyURL(input); got != want {
			t.Fatalf("ClassifyURL(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestExtractURLIDs(t *testing.T) {
	ids := ExtractURLIDs("https://www.amazon.com/Some-Title/dp/B00ABCDEFG/ref=x")
	if !reflect.DeepEqual(ids["asin"], []string{"B00ABCDEFG"}) {
		t.Fatalf("expected asin, got %v", ids)
	}
	if _, ok := ids["isbn"]; ok {
		t.Fatalf("did not expect isbn for non-book ASIN: %v", ids)
	}

	ids = ExtractURLIDs("https://www.amazon.com/dp/0306406152")
	if len(ids["isbn"]) == 0 || ids["isbn"][0] != "0306406152" {
		t.Fatalf("expected ISBN-10 ASIN to be treated as isbn, got %v", ids)
	}

	ids = ExtractURLIDs("https://www.goodreads.com/book/show/12345.Title")
	if !reflect.DeepEqual(ids["goodreads_id"], []string{"12345"}) {
		t.Fatalf("expected goodreads id, got %v", ids)
	}

	ids = ExtractURLIDs("https://books.google.com/books?id=zyTCAlFPjgYC&hl=en")
	if !reflect.DeepEqual(ids["google_books_id"], []string{"zyTCAlFPjgYC"}) {
		t.Fatalf("expected google books id, got %v", ids)
	}

	ids = ExtractURLIDs("https://www.google.com/search?id=nope")
	if _, ok := ids["google_books_id"]; ok {
		t.Fatalf("google books id requires a books subdomain: %v", ids)
	}

	ids = ExtractURLIDs("https://www.worldcat.org/oclc/987654")
	if !reflect.DeepEqual(ids["oclc"], []string{"987654"}) {
		t.Fatalf("expected oclc, got %v", ids)
	}

	ids = ExtractURLIDs("https://example.com/isbn/9780306406157")
	if !reflect.DeepEqual(ids["isbn"], []string{"9780306406157"}) {
		t.Fatalf("expected path isbn, got %v", ids)
	}
}

func TestExtractFromText(t *testing.T) {
	text := `Please buy "The Book" ISBN 978-0-306-40615-7 (also 0306406152), journal 0317-8471,
see https://doi.org/10.1000/XYZ123 and https://www.worldcat.org/isbn/080442957X.`
	result := Extract(text)

	wantISBN := []string{"9780306406157", "9780804429573"}
	if !reflect.DeepEqual(result.ISBN, wantISBN) {
		t.Fatalf("ISBN = %v, want %v", result.ISBN, wantISBN)
	}
	if !reflect.DeepEqual(result.ISSN, []string{"03178471"}) {
		t.Fatalf("ISSN = %v", result.ISSN)
	}
	if !reflect.DeepEqual(result.DOI, []string{"10.1000/xyz123"}) {
		t.Fatalf("DOI = %v", result.DOI)
	}
	if len(result.URLs) != 2 {
		t.Fatalf("expected 2 urls, got %d", len(result.URLs))
	}
	if result.URLs[1].NormalizedURL != "https://www.worldcat.org/isbn/080442957X" {
		t.Fatalf("expected trailing punctuation stripped, got %q", result.URLs[1].NormalizedURL)
	}
	if !result.ValidISBNPresent || !result.ValidISSNPresent || !result.DOIPresent || !result.URLPresent {
		t.Fatalf("expected every presence flag set: %+v", result)
	}
}

func TestExtractRejectsInvalidAndDedupes(t *testing.T) {
	result := Extract("ISBN 9780306406158 and 9780306406157 and 9780306406157 again")
	if !reflect.DeepEqual(result.ISBN, []string{"9780306406157"}) {
		t.Fatalf("ISBN = %v", result.ISBN)
	}

	empty := Extract("just some words")
	if empty.ValidISBNPresent || empty.URLPresent || empty.DOIPresent || empty.ValidISSNPresent {
		t.Fatalf("expected no flags, got %+v", empty)
	}
	if empty.ISBN == nil || empty.ISSN == nil || empty.DOI == nil {
		t.Fatal("expected empty lists, not nil")
	}
}

func TestExtractFullWidthDigits(t *testing.T) {
	result := Extract("ＩＳＢＮ ９７８０３０６４０６１５７")
	if !reflect.DeepEqual(result.ISBN, []string{"9780306406157"}) {
		t.Fatalf("ISBN = %v", result.ISBN)
	}
}
