package testsupport

import (
	"context"
	"testing"

	"suggestbot/internal/config"
	"suggestbot/internal/requests"
)

// MustOpenStore opens a requests.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *requests.Store {
	t.Helper()

	store, err := requests.Open(cfg)
	if err != nil {
		t.Fatalf("requests.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRequest submits a pending request with the given query.
func NewRequest(t testing.TB, store *requests.Store, query string) *requests.Request {
	t.Helper()

	req, err := store.Submit(context.Background(), requests.Submission{
		PatronRecordID: 1001,
		RawQuery:       query,
	}, "")
	if err != nil {
		t.Fatalf("store.Submit: %v", err)
	}
	return req
}
