package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"suggestbot/internal/catalog"
	"suggestbot/internal/config"
	"suggestbot/internal/openlibrary"
	"suggestbot/internal/requests"
	"suggestbot/internal/stage"
)

type fakeCatalog struct {
	mu     sync.Mutex
	byISBN map[string][]catalog.Bib
	byText []catalog.Bib
	items  map[string][]catalog.Item
	calls  int
}

func (f *fakeCatalog) Name() string { return "sierra_catalog" }

func (f *fakeCatalog) SearchByIdentifier(_ context.Context, isbn string, _ int) (catalog.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	bibs := f.byISBN[isbn]
	return catalog.SearchPage{Total: len(bibs), Entries: bibs}, nil
}

func (f *fakeCatalog) SearchByText(context.Context, string, string, int) (catalog.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return catalog.SearchPage{Total: len(f.byText), Entries: f.byText}, nil
}

func (f *fakeCatalog) Availability(_ context.Context, ids []string, _ int) (catalog.ItemPage, error) {
	var out []catalog.Item
	for _, id := range ids {
		out = append(out, f.items[id]...)
	}
	return catalog.ItemPage{Total: len(out), Entries: out}, nil
}

type fakeOpenLibrary struct {
	editions map[string]*openlibrary.Edition
	err      error
	lookups  int
}

func (f *fakeOpenLibrary) LookupISBN(_ context.Context, isbn string) (*openlibrary.Edition, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.editions[isbn], nil
}

func (f *fakeOpenLibrary) LookupWork(context.Context, string) (*openlibrary.Work, error) {
	return nil, nil
}

func (f *fakeOpenLibrary) Search(context.Context, string, string) ([]openlibrary.SearchResult, error) {
	return nil, f.err
}

func (f *fakeOpenLibrary) AuthorName(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeOpenLibrary) CoverURL(isbn string, _ int, _ string) string {
	if isbn == "" {
		return ""
	}
	return "https://covers.example/" + isbn + "-M.jpg"
}

// scriptedStage is injected between real stages to exercise failure paths.
type scriptedStage struct {
	name  string
	fail  bool
	panic bool
	seen  []*requests.Request
}

func (s *scriptedStage) Name() string { return s.name }

func (s *scriptedStage) Enabled(*config.Config) bool { return true }

func (s *scriptedStage) Process(_ context.Context, req *requests.Request) stage.Result {
	s.seen = append(s.seen, req)
	if s.panic {
		panic("scripted panic")
	}
	if s.fail {
		return stage.Failed(s.name, errors.New("scripted failure"), nil)
	}
	return stage.Succeeded(s.name, nil)
}

func allStages() config.Stages {
	return config.Stages{
		CatalogLookup:         true,
		OpenLibraryEnrichment: true,
		ConsortiumCheck:       true,
		InputRefinement:       true,
		SelectionGuidance:     true,
		AutomaticActions:      true,
	}
}

func eventTypes(t *testing.T, store *requests.Store, requestID string) []requests.EventType {
	t.Helper()
	events, err := store.ListEvents(context.Background(), requestID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	types := make([]requests.EventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}

func eventPayload(t *testing.T, store *requests.Store, requestID string, eventType requests.EventType) map[string]any {
	t.Helper()
	events, err := store.ListEvents(context.Background(), requestID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	for _, event := range events {
		if event.Type == eventType {
			payload, err := event.Payload()
			if err != nil {
				t.Fatalf("Payload: %v", err)
			}
			return payload
		}
	}
	t.Fatalf("no %s event for %s", eventType, requestID)
	return nil
}
