package pipeline

import (
	"context"

	"suggestbot/internal/config"
	"suggestbot/internal/requests"
	"suggestbot/internal/stage"
)

// Placeholder stage names. These stages record that they ran without calling
// any consortium or language-model service.
const (
	StageConsortium = "consortium_check"
	StageRefinement = "input_refinement"
	StageGuidance   = "selection_guidance"
)

type consortiumStage struct{ recorder }

func (s *consortiumStage) Name() string { return StageConsortium }

func (s *consortiumStage) Enabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Stages.ConsortiumCheck
}

func (s *consortiumStage) Process(ctx context.Context, req *requests.Request) stage.Result {
	result := requests.ConsortiumResult{Available: false, Sources: []map[string]any{}}
	if err := s.store.SaveConsortium(ctx, req.ID, result); err != nil {
		return stage.Failed(StageConsortium, err, nil)
	}
	payload := map[string]any{"available": result.Available, "sources_count": len(result.Sources)}
	if err := s.emit(ctx, req.ID, requests.EventBotConsortiumChecked, payload); err != nil {
		return stage.Failed(StageConsortium, err, payload)
	}
	return stage.Succeeded(StageConsortium, payload)
}

type refinementStage struct{ recorder }

func (s *refinementStage) Name() string { return StageRefinement }

func (s *refinementStage) Enabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Stages.InputRefinement
}

func (s *refinementStage) Process(ctx context.Context, req *requests.Request) stage.Result {
	payload := map[string]any{"raw_query": req.RawQuery}
	if err := s.emit(ctx, req.ID, requests.EventBotRefined, payload); err != nil {
		return stage.Failed(StageRefinement, err, payload)
	}
	return stage.Succeeded(StageRefinement, payload)
}

type guidanceStage struct{ recorder }

func (s *guidanceStage) Name() string { return StageGuidance }

func (s *guidanceStage) Enabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Stages.SelectionGuidance
}

func (s *guidanceStage) Process(ctx context.Context, req *requests.Request) stage.Result {
	if err := s.emit(ctx, req.ID, requests.EventBotAssessed, nil); err != nil {
		return stage.Failed(StageGuidance, err, nil)
	}
	return stage.Succeeded(StageGuidance, map[string]any{})
}
