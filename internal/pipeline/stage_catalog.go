package pipeline

import (
	"context"
	"strings"

	"suggestbot/internal/catalog"
	"suggestbot/internal/config"
	"suggestbot/internal/logging"
	"suggestbot/internal/metrics"
	"suggestbot/internal/requests"
	"suggestbot/internal/stage"
)

// StageCatalog is the name of the catalog lookup stage.
const StageCatalog = "catalog_lookup"

// Skip reasons shared by stages.
const (
	ReasonNoEvidence       = "no_evidence"
	ReasonNoSearchCriteria = "no_search_criteria"
	ReasonNoSource         = "no_source"
)

type catalogStage struct {
	recorder
	source  catalog.Source
	matcher *catalog.Matcher
	metrics *metrics.Metrics
}

func (s *catalogStage) Name() string { return StageCatalog }

func (s *catalogStage) Enabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Stages.CatalogLookup
}

func (s *catalogStage) HealthCheck(context.Context) stage.Health {
	if s.source == nil {
		return stage.Unhealthy(StageCatalog, "catalog source not configured")
	}
	return stage.Healthy(StageCatalog)
}

func (s *catalogStage) Process(ctx context.Context, req *requests.Request) stage.Result {
	packet, err := stage.LoadEvidence(req)
	if err != nil {
		return s.fail(ctx, req.ID, err)
	}
	if packet == nil {
		payload := map[string]any{"match": string(catalog.MatchNone), "skipped": true, "reason": ReasonNoEvidence}
		if err := s.emit(ctx, req.ID, requests.EventBotCatalogChecked, payload); err != nil {
			return stage.Failed(StageCatalog, err, payload)
		}
		return stage.Skipped(StageCatalog, ReasonNoEvidence, payload)
	}
	if !packet.HasISBN() && strings.TrimSpace(packet.Extracted.TitleGuess) == "" {
		payload := map[string]any{"match": string(catalog.MatchNone), "skipped": true, "reason": ReasonNoSearchCriteria}
		if err := s.emit(ctx, req.ID, requests.EventBotCatalogChecked, payload); err != nil {
			return stage.Failed(StageCatalog, err, payload)
		}
		return stage.Skipped(StageCatalog, ReasonNoSearchCriteria, payload)
	}
	if s.matcher == nil {
		payload := map[string]any{"match": string(catalog.MatchNone), "skipped": true, "reason": ReasonNoSource}
		if err := s.emit(ctx, req.ID, requests.EventBotCatalogChecked, payload); err != nil {
			return stage.Failed(StageCatalog, err, payload)
		}
		return stage.Skipped(StageCatalog, ReasonNoSource, payload)
	}

	sets, strategy := s.matcher.Search(ctx, packet)
	match := catalog.Classify(sets, packet)
	if err := s.store.SaveCatalogResult(ctx, req.ID, match, &sets); err != nil {
		return s.fail(ctx, req.ID, err)
	}
	s.metrics.ObserveCatalogMatch(string(match))

	candidates := sets.AllCandidates()
	payload := map[string]any{
		"match":            string(match),
		"candidates_found": len(candidates),
		"search_strategy":  string(strategy),
	}
	if len(candidates) > 0 {
		first := candidates[0]
		payload["first_match"] = map[string]any{
			"title":     first.Title,
			"bib_id":    first.SourceRecordRef.BibID,
			"available": first.SourceRecordRef.Available(),
		}
	}
	if err := s.emit(ctx, req.ID, requests.EventBotCatalogChecked, payload); err != nil {
		return stage.Failed(StageCatalog, err, payload)
	}
	s.log(ctx).Info("catalog checked",
		logging.String(logging.FieldEventType, "catalog_checked"),
		logging.String("match", string(match)),
		logging.String("search_strategy", string(strategy)),
		logging.Int("candidates", len(candidates)),
	)
	return stage.Succeeded(StageCatalog, payload)
}

func (s *catalogStage) fail(ctx context.Context, requestID string, err error) stage.Result {
	payload := map[string]any{"match": string(catalog.MatchNone), "error": err.Error()}
	if emitErr := s.emit(ctx, requestID, requests.EventBotCatalogChecked, payload); emitErr != nil {
		s.log(ctx).Debug("catalog failure event not recorded", logging.Error(emitErr))
	}
	return stage.Failed(StageCatalog, err, payload)
}
