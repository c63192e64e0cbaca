package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"suggestbot/internal/evidence"
)

type fakeSource struct {
	byISBN        map[string][]Bib
	byText        []Bib
	textErr       error
	isbnErr       error
	items         map[string][]Item
	itemsErr      error
	isbnCalls     []string
	textCalls     [][2]string
	availabilityN int
}

func (f *fakeSource) Name() string { return "sierra_catalog" }

func (f *fakeSource) SearchByIdentifier(_ context.Context, isbn string, _ int) (SearchPage, error) {
	f.isbnCalls = append(f.isbnCalls, isbn)
	if f.isbnErr != nil {
		return SearchPage{}, f.isbnErr
	}
	bibs := f.byISBN[isbn]
	return SearchPage{Total: len(bibs), Entries: bibs}, nil
}

func (f *fakeSource) SearchByText(_ context.Context, title, author string, _ int) (SearchPage, error) {
	f.textCalls = append(f.textCalls, [2]string{title, author})
	if f.textErr != nil {
		return SearchPage{}, f.textErr
	}
	return SearchPage{Total: len(f.byText), Entries: f.byText}, nil
}

func (f *fakeSource) Availability(_ context.Context, ids []string, _ int) (ItemPage, error) {
	f.availabilityN++
	if f.itemsErr != nil {
		return ItemPage{}, f.itemsErr
	}
	var out []Item
	for _, id := range ids {
		out = append(out, f.items[id]...)
	}
	return ItemPage{Total: len(out), Entries: out}, nil
}

func packetWith(isbns []string, title, author string) *evidence.Packet {
	packet := evidence.Build(evidence.Input{OmniInput: "placeholder"})
	packet.Identifiers.ISBN = isbns
	packet.Extracted.TitleGuess = title
	packet.Extracted.AuthorGuess = author
	return &packet
}

func TestSearchStopsAtFirstISBNHit(t *testing.T) {
	source := &fakeSource{
		byISBN: map[string][]Bib{
			"9780306406157": {{ID: "1001", Title: "Hit", ISBN: []string{"9780306406157"}}},
		},
	}
	matcher := NewMatcher(source, WithClock(func() time.Time { return time.Unix(0, 0) }))
	packet := packetWith([]string{"9780000000002", "9780306406157", "9780804429573", "9781111111113"}, "Title", "Author Name")

	sets, strategy := matcher.Search(context.Background(), packet)

	if strategy != StrategyISBN {
		t.Fatalf("strategy = %q", strategy)
	}
	if !reflect.DeepEqual(source.isbnCalls, []string{"9780000000002", "9780306406157"}) {
		t.Fatalf("isbn calls = %v", source.isbnCalls)
	}
	if len(source.textCalls) != 0 {
		t.Fatalf("title tiers must not run after an ISBN hit, got %v", source.textCalls)
	}
	if len(sets.Sources) != 1 || len(sets.Sources[0].Results) != 2 {
		t.Fatalf("unexpected artifact shape: %+v", sets)
	}
	if sets.Sources[0].SourceName != "sierra_catalog" {
		t.Fatalf("source name = %q", sets.Sources[0].SourceName)
	}
	if got := Classify(sets, packet); got != MatchExact {
		t.Fatalf("Classify = %q, want exact", got)
	}
}

func TestSearchCapsISBNAttempts(t *testing.T) {
	source := &fakeSource{}
	packet := packetWith([]string{"a", "b", "c", "d"}, "", "")
	sets, strategy := NewMatcher(source).Search(context.Background(), packet)
	if len(source.isbnCalls) != 3 {
		t.Fatalf("expected 3 isbn calls, got %v", source.isbnCalls)
	}
	if strategy != StrategyISBN {
		t.Fatalf("strategy = %q", strategy)
	}
	if Classify(sets, packet) != MatchNone {
		t.Fatal("expected none with no candidates")
	}
}

func TestSearchFallsBackToTitleAuthor(t *testing.T) {
	source := &fakeSource{byText: []Bib{{ID: "77", Title: "Other Edition", ISBN: []string{"9780804429573"}}}}
	packet := packetWith([]string{"9780306406157"}, "Dune", "Frank Herbert")

	sets, strategy := NewMatcher(source).Search(context.Background(), packet)
	if strategy != StrategyTitleAuthor {
		t.Fatalf("strategy = %q", strategy)
	}
	if !reflect.DeepEqual(source.textCalls, [][2]string{{"Dune", "Frank Herbert"}}) {
		t.Fatalf("text calls = %v", source.textCalls)
	}
	results := sets.Sources[0].Results
	if results[len(results)-1].QueryString != "title:Dune author:Frank Herbert" {
		t.Fatalf("query = %q", results[len(results)-1].QueryString)
	}
	if got := Classify(sets, packet); got != MatchPartial {
		t.Fatalf("Classify = %q, want partial", got)
	}
}

func TestSearchTitleOnlyWhenNoAuthor(t *testing.T) {
	source := &fakeSource{}
	_, strategy := NewMatcher(source).Search(context.Background(), packetWith(nil, "Dune", ""))
	if strategy != StrategyTitleOnly {
		t.Fatalf("strategy = %q", strategy)
	}
	if !reflect.DeepEqual(source.textCalls, [][2]string{{"Dune", ""}}) {
		t.Fatalf("text calls = %v", source.textCalls)
	}
}

func TestSearchTierErrorDoesNotAbortLaterTiers(t *testing.T) {
	source := &fakeSource{
		isbnErr: errors.New("sierra down"),
		byText:  []Bib{{ID: "5", Title: "Found"}},
	}
	sets, _ := NewMatcher(source).Search(context.Background(), packetWith([]string{"9780306406157"}, "Found", "Some Author"))
	results := sets.Sources[0].Results
	if len(results) != 2 {
		t.Fatalf("expected two tier results, got %d", len(results))
	}
	if results[0].Error == "" {
		t.Fatal("expected error recorded on isbn tier")
	}
	if len(results[1].Candidates) != 1 {
		t.Fatalf("expected title tier candidate, got %+v", results[1])
	}
}

func TestSearchAttachesAvailability(t *testing.T) {
	items := []Item{
		{ID: "i1", LocationName: "Main", StatusCode: "-", StatusDisplay: "AVAILABLE", CallNumber: "FIC A"},
		{ID: "i2", StatusCode: "o", StatusDisplay: "CHECKED OUT"},
		{ID: "i3", StatusCode: "o"}, {ID: "i4", StatusCode: "o"}, {ID: "i5", StatusCode: "o"}, {ID: "i6", StatusCode: "-"},
	}
	source := &fakeSource{
		byISBN: map[string][]Bib{"9780306406157": {{ID: "1001", Title: "Hit"}}},
		items:  map[string][]Item{"1001": items},
	}
	sets, _ := NewMatcher(source).Search(context.Background(), packetWith([]string{"9780306406157"}, "", ""))
	candidate := sets.AllCandidates()[0]
	ref := candidate.SourceRecordRef
	if ref.TotalCopies == nil || *ref.TotalCopies != 6 || *ref.AvailableCopies != 2 {
		t.Fatalf("unexpected counts: %+v", ref)
	}
	if !ref.Available() {
		t.Fatal("expected available")
	}
	if len(ref.Items) != 5 {
		t.Fatalf("expected item details capped at 5, got %d", len(ref.Items))
	}
	if ref.Items[0] != (ItemSummary{ID: "i1", Location: "Main", Status: "AVAILABLE", CallNumber: "FIC A"}) {
		t.Fatalf("item[0] = %+v", ref.Items[0])
	}
	if candidate.CandidateID != "sierra_bib_1001" || candidate.SourceRank != 1 {
		t.Fatalf("candidate = %+v", candidate)
	}
}

func TestSearchKeepsCandidateWhenAvailabilityFails(t *testing.T) {
	source := &fakeSource{
		byISBN:   map[string][]Bib{"9780306406157": {{ID: "1001", Title: "Hit"}}},
		itemsErr: errors.New("items timeout"),
	}
	sets, _ := NewMatcher(source).Search(context.Background(), packetWith([]string{"9780306406157"}, "", ""))
	result := sets.Sources[0].Results[0]
	if len(result.Candidates) != 1 || result.Error == "" {
		t.Fatalf("expected candidate plus error, got %+v", result)
	}
	if result.Candidates[0].SourceRecordRef.TotalCopies != nil {
		t.Fatal("expected no availability summary when lookup failed")
	}
}

func TestSearchWithoutCriteria(t *testing.T) {
	source := &fakeSource{}
	sets, strategy := NewMatcher(source).Search(context.Background(), packetWith(nil, "", ""))
	if strategy != StrategyNone || sets.HasCandidates() {
		t.Fatalf("strategy = %q, sets = %+v", strategy, sets)
	}
	if len(source.isbnCalls)+len(source.textCalls) != 0 {
		t.Fatal("expected no source calls")
	}
}

func TestClassifyCanonicalizesCandidateISBNs(t *testing.T) {
	sets := NewCandidateSets(time.Now())
	sets.Sources = []SourceResults{{
		SourceName: "sierra_catalog",
		Results: []SearchResult{{
			QueryString: "title:x",
			Candidates:  []Candidate{{CandidateID: "c", Identifiers: map[string][]string{"isbn": {"0-306-40615-2"}}}},
		}},
	}}
	if got := Classify(sets, packetWith([]string{"9780306406157"}, "", "")); got != MatchExact {
		t.Fatalf("Classify = %q, want exact", got)
	}
	if got := Classify(NewCandidateSets(time.Now()), packetWith([]string{"9780306406157"}, "", "")); got != MatchNone {
		t.Fatalf("Classify = %q, want none", got)
	}
}

func TestBibToCandidateSplitsAuthors(t *testing.T) {
	cases := map[string][]string{
		"Smith, Jane; Doe, John":  {"Smith, Jane", "Doe, John"},
		"Jane Smith AND John Doe": {"Jane Smith", "John Doe"},
		"Single Author":           {"Single Author"},
		"":                        nil,
	}
	for raw, want := range cases {
		got := BibToCandidate("sierra_catalog", Bib{ID: "1", Author: raw}, 1, ItemPage{}, false).Authors
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("authors(%q) = %v, want %v", raw, got, want)
		}
	}
	candidate := BibToCandidate("sierra_catalog", Bib{MaterialType: CodeValue{Code: "a"}}, 2, ItemPage{}, false)
	if candidate.Format != "a" || candidate.Title != "Unknown Title" || candidate.CandidateID != "sierra_bib_unknown" {
		t.Fatalf("candidate = %+v", candidate)
	}
}

func TestCandidateSetsRoundTrip(t *testing.T) {
	sets := NewCandidateSets(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sets.Sources = []SourceResults{{SourceName: "sierra_catalog", Results: []SearchResult{{QueryString: "isbn:1", Candidates: []Candidate{}, Error: "boom"}}}}
	data, err := sets.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	parsed, err := ParseCandidateSets(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Sources[0].Results[0].Error != "boom" || parsed.CreatedUTC != "2026-01-01T00:00:00Z" {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestBibToCandidateUsesReportedItemTotal(t *testing.T) {
	items := make([]Item, 0, 50)
	for i := 0; i < 50; i++ {
		status := "-"
		if i%2 == 0 {
			status = "o"
		}
		items = append(items, Item{ID: fmt.Sprint(i), StatusCode: status})
	}
	candidate := BibToCandidate("sierra_catalog", Bib{ID: "7"}, 1, ItemPage{Total: 120, Entries: items}, true)
	ref := candidate.SourceRecordRef
	if ref.TotalCopies == nil || *ref.TotalCopies != 120 {
		t.Fatalf("total copies = %v, want 120", ref.TotalCopies)
	}
	if ref.AvailableCopies == nil || *ref.AvailableCopies != 25 {
		t.Fatalf("available copies = %v, want 25", ref.AvailableCopies)
	}
	if len(ref.Items) != 5 {
		t.Fatalf("item details = %d, want 5", len(ref.Items))
	}

	small := BibToCandidate("sierra_catalog", Bib{ID: "8"}, 1, ItemPage{Entries: items[:3]}, true)
	if small.SourceRecordRef.TotalCopies == nil || *small.SourceRecordRef.TotalCopies != 3 {
		t.Fatalf("total copies without reported total = %v", small.SourceRecordRef.TotalCopies)
	}
}
