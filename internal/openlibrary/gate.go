package openlibrary

import (
	"suggestbot/internal/catalog"
	"suggestbot/internal/config"
)

// Gate reasons recorded on the bot_openlibrary_checked event.
const (
	ReasonAlreadyChecked       = "already_checked"
	ReasonNoCatalogCheck       = "no_catalog_check"
	ReasonNoCatalogMatch       = "no_catalog_match"
	ReasonPartialCatalogMatch  = "partial_catalog_match"
	ReasonSkipExactMatch       = "skip_exact_match"
	ReasonExactMatchEnrichment = "exact_match_enrichment"
)

// GateState is the slice of request state the gate looks at.
type GateState struct {
	AlreadyChecked bool
	CatalogChecked bool
	CatalogMatch   catalog.Match
}

// Gate decides whether enrichment should run for a request. Enrichment never
// runs before a catalog check has been recorded, even when the catalog stage
// is disabled.
func Gate(state GateState, cfg config.OpenLibrary) (bool, string) {
	switch {
	case state.AlreadyChecked:
		return false, ReasonAlreadyChecked
	case !state.CatalogChecked:
		return false, ReasonNoCatalogCheck
	}
	switch state.CatalogMatch {
	case catalog.MatchExact:
		if cfg.RunOnExact {
			return true, ReasonExactMatchEnrichment
		}
		return false, ReasonSkipExactMatch
	case catalog.MatchPartial:
		return cfg.RunOnPartial, ReasonPartialCatalogMatch
	default:
		return cfg.RunOnNoMatch, ReasonNoCatalogMatch
	}
}
