package preflight

import (
	"context"

	"suggestbot/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("State directory", cfg.Paths.StateDir)}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Stages.CatalogLookup {
		results = append(results, CheckSierra(ctx, cfg.Sierra, cfg.SierraTimeout()))
	}
	if cfg.Stages.OpenLibraryEnrichment && cfg.OpenLibrary.Enabled {
		results = append(results, CheckOpenLibrary(ctx, cfg.OpenLibrary.BaseURL, cfg.OpenLibraryTimeout()))
	}
	return results
}
