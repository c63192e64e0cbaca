package openlibrary

import (
	"testing"

	"suggestbot/internal/catalog"
	"suggestbot/internal/config"
)

func TestGateDefaults(t *testing.T) {
	cfg := config.Default().OpenLibrary

	tests := []struct {
		name       string
		state      GateState
		wantRun    bool
		wantReason string
	}{
		{"already checked", GateState{AlreadyChecked: true, CatalogChecked: true}, false, ReasonAlreadyChecked},
		{"no catalog check", GateState{CatalogMatch: catalog.MatchNone}, false, ReasonNoCatalogCheck},
		{"no match", GateState{CatalogChecked: true, CatalogMatch: catalog.MatchNone}, true, ReasonNoCatalogMatch},
		{"empty match", GateState{CatalogChecked: true}, true, ReasonNoCatalogMatch},
		{"partial", GateState{CatalogChecked: true, CatalogMatch: catalog.MatchPartial}, true, ReasonPartialCatalogMatch},
		{"exact", GateState{CatalogChecked: true, CatalogMatch: catalog.MatchExact}, false, ReasonSkipExactMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, reason := Gate(tt.state, cfg)
			if run != tt.wantRun || reason != tt.wantReason {
				t.Fatalf("Gate = (%v, %q), want (%v, %q)", run, reason, tt.wantRun, tt.wantReason)
			}
		})
	}
}

func TestGateHonorsToggles(t *testing.T) {
	cfg := config.Default().OpenLibrary
	cfg.RunOnExact = true
	cfg.RunOnPartial = false
	cfg.RunOnNoMatch = false

	if run, reason := Gate(GateState{CatalogChecked: true, CatalogMatch: catalog.MatchExact}, cfg); !run || reason != ReasonExactMatchEnrichment {
		t.Fatalf("exact: got (%v, %q)", run, reason)
	}
	if run, _ := Gate(GateState{CatalogChecked: true, CatalogMatch: catalog.MatchPartial}, cfg); run {
		t.Fatal("partial should not run when run_on_partial_match is false")
	}
	if run, _ := Gate(GateState{CatalogChecked: true, CatalogMatch: catalog.MatchNone}, cfg); run {
		t.Fatal("none should not run when run_on_no_match is false")
	}
}

func TestScrub(t *testing.T) {
	tests := map[string]string{
		"Call me at 555-123-4567 please":    "Call me at [redacted] please",
		"email jane.doe@example.org thanks": "email [redacted] thanks",
		"card 4111111111111111 ok":          "card [redacted] ok",
		"  The   Women  ":                   "The Women",
		"Project Hail Mary":                 "Project Hail Mary",
		"":                                  "",
	}
	for in, want := range tests {
		if got := Scrub(in); got != want {
			t.Fatalf("Scrub(%q) = %q, want %q", in, got, want)
		}
	}
}
