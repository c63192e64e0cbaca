package pipeline

import (
	"context"

	"suggestbot/internal/catalog"
	"suggestbot/internal/config"
	"suggestbot/internal/logging"
	"suggestbot/internal/requests"
	"suggestbot/internal/stage"
)

// StageActions is the name of the automatic actions stage.
const StageActions = "automatic_actions"

// Suggested actions recorded on the request. Staff still make the decision.
const (
	ActionAutoDecline = "auto_decline_suggested"
	ActionHold        = "hold_suggested"
)

type actionsStage struct {
	recorder
	cfg config.AutoActions
}

func (s *actionsStage) Name() string { return StageActions }

func (s *actionsStage) Enabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Stages.AutomaticActions
}

func (s *actionsStage) Process(ctx context.Context, req *requests.Request) stage.Result {
	actions := SuggestActions(req, s.cfg)
	if len(actions) == 0 {
		return stage.Skipped(StageActions, "no_actions", map[string]any{"actions": []string{}})
	}
	if err := s.store.SaveAction(ctx, req.ID, actions); err != nil {
		return stage.Failed(StageActions, err, nil)
	}
	payload := map[string]any{"actions": actions}
	if err := s.emit(ctx, req.ID, requests.EventBotActionTaken, payload); err != nil {
		return stage.Failed(StageActions, err, payload)
	}
	s.log(ctx).Info("actions suggested",
		logging.String(logging.FieldEventType, "actions_suggested"),
		logging.Any("actions", actions),
	)
	return stage.Succeeded(StageActions, payload)
}

// SuggestActions returns the actions the request qualifies for under cfg.
func SuggestActions(req *requests.Request, cfg config.AutoActions) []string {
	var actions []string
	if cfg.DeclineOnCatalogExactMatch && req.CatalogMatch == catalog.MatchExact {
		actions = append(actions, ActionAutoDecline)
	}
	if cfg.HoldOnConsortiumMatch && req.ConsortiumAvailable != nil && *req.ConsortiumAvailable {
		actions = append(actions, ActionHold)
	}
	return actions
}
