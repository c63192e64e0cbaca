package pipeline

import (
	"context"

	"suggestbot/internal/config"
	"suggestbot/internal/evidence"
	"suggestbot/internal/logging"
	"suggestbot/internal/requests"
	"suggestbot/internal/stage"
)

// StageEvidence is the name of the evidence extraction stage.
const StageEvidence = "evidence_extraction"

// evidenceStage builds the evidence packet. A packet already stored on the
// request is reused so the snapshot never changes underneath later stages.
type evidenceStage struct {
	recorder
	builder evidence.Builder
}

func (s *evidenceStage) Name() string { return StageEvidence }

func (s *evidenceStage) Enabled(*config.Config) bool { return true }

func (s *evidenceStage) Process(ctx context.Context, req *requests.Request) stage.Result {
	if existing, err := stage.LoadEvidence(req); err == nil && existing != nil {
		summary := stage.EvidenceSummary(existing)
		summary["reused"] = true
		if err := s.emit(ctx, req.ID, requests.EventBotEvidenceExtracted, summary); err != nil {
			return stage.Failed(StageEvidence, err, nil)
		}
		return stage.Succeeded(StageEvidence, summary)
	}

	packet := s.builder.Build(evidence.Input{
		OmniInput:        req.RawQuery,
		FormatPreference: req.FormatPreference,
		Notes:            req.PatronNotes,
	})
	if err := s.store.SaveEvidence(ctx, req.ID, &packet); err != nil {
		return stage.Failed(StageEvidence, err, nil)
	}

	summary := stage.EvidenceSummary(&packet)
	if err := s.emit(ctx, req.ID, requests.EventBotEvidenceExtracted, summary); err != nil {
		return stage.Failed(StageEvidence, err, summary)
	}
	s.log(ctx).Info("evidence extracted",
		logging.String(logging.FieldEventType, "evidence_extracted"),
		logging.Int("isbn_count", len(packet.Identifiers.ISBN)),
		logging.Int("url_count", len(packet.Identifiers.URLs)),
	)
	return stage.Succeeded(StageEvidence, summary)
}
