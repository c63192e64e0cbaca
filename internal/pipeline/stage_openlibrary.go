package pipeline

import (
	"context"

	"suggestbot/internal/config"
	"suggestbot/internal/logging"
	"suggestbot/internal/metrics"
	"suggestbot/internal/openlibrary"
	"suggestbot/internal/requests"
	"suggestbot/internal/stage"
)

// StageOpenLibrary is the name of the secondary enrichment stage.
const StageOpenLibrary = "openlibrary_enrichment"

type openLibraryStage struct {
	recorder
	cfg      config.OpenLibrary
	enricher *openlibrary.Enricher
	metrics  *metrics.Metrics
}

func (s *openLibraryStage) Name() string { return StageOpenLibrary }

func (s *openLibraryStage) Enabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Stages.OpenLibraryEnrichment && cfg.OpenLibrary.Enabled
}

func (s *openLibraryStage) HealthCheck(context.Context) stage.Health {
	if s.enricher == nil {
		return stage.Unhealthy(StageOpenLibrary, "metadata source not configured")
	}
	return stage.Healthy(StageOpenLibrary)
}

func (s *openLibraryStage) Process(ctx context.Context, req *requests.Request) stage.Result {
	run, reason := openlibrary.Gate(openlibrary.GateState{
		AlreadyChecked: req.OpenLibraryChecked(),
		CatalogChecked: req.CatalogChecked(),
		CatalogMatch:   req.CatalogMatch,
	}, s.cfg)
	if !run {
		return s.skip(ctx, req.ID, reason)
	}

	packet, err := stage.LoadEvidence(req)
	if err != nil {
		return stage.Failed(StageOpenLibrary, err, nil)
	}
	if packet == nil {
		return s.skip(ctx, req.ID, ReasonNoEvidence)
	}
	if s.enricher == nil {
		return s.skip(ctx, req.ID, ReasonNoSource)
	}

	enrichment := s.enricher.Enrich(ctx, packet)
	if err := s.store.SaveOpenLibraryResult(ctx, req.ID, enrichment); err != nil {
		return stage.Failed(StageOpenLibrary, err, nil)
	}
	s.metrics.ObserveEnrichment(string(enrichment.MatchConfidence))

	payload := map[string]any{
		"found":            enrichment.Found(),
		"match_confidence": string(enrichment.MatchConfidence),
		"reason":           reason,
	}
	if enrichment.Error != "" {
		payload["error"] = enrichment.Error
	}
	if err := s.emit(ctx, req.ID, requests.EventBotOpenLibraryChecked, payload); err != nil {
		return stage.Failed(StageOpenLibrary, err, payload)
	}
	s.log(ctx).Info("open library checked",
		logging.String(logging.FieldEventType, "openlibrary_checked"),
		logging.Bool("found", enrichment.Found()),
		logging.String("match_confidence", string(enrichment.MatchConfidence)),
	)
	return stage.Succeeded(StageOpenLibrary, payload)
}

func (s *openLibraryStage) skip(ctx context.Context, requestID, reason string) stage.Result {
	payload := map[string]any{"skipped": true, "reason": reason}
	if err := s.emit(ctx, requestID, requests.EventBotOpenLibraryChecked, payload); err != nil {
		return stage.Failed(StageOpenLibrary, err, payload)
	}
	return stage.Skipped(StageOpenLibrary, reason, payload)
}
