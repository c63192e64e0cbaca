package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"suggestbot/internal/catalog"
	"suggestbot/internal/config"
	"suggestbot/internal/evidence"
	"suggestbot/internal/logging"
	"suggestbot/internal/metrics"
	"suggestbot/internal/openlibrary"
	"suggestbot/internal/requests"
	"suggestbot/internal/services"
	"suggestbot/internal/stage"
)

// Deps carries the external collaborators. Nil sources make the matching
// stage record a skip instead of calling out.
type Deps struct {
	Catalog     catalog.Source
	OpenLibrary openlibrary.Source
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Pipeline runs requests through the ordered stage list.
type Pipeline struct {
	cfg     *config.Config
	store   *requests.Store
	stages  []stage.Stage
	rec     recorder
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// New assembles the stage list from cfg and deps.
func New(cfg *config.Config, store *requests.Store, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	actorID := strings.TrimSpace(cfg.Bot.ActorID)
	if actorID == "" {
		actorID = requests.DefaultActorID
	}
	rec := recorder{store: store, actorID: actorID, logger: logger}

	var matcher *catalog.Matcher
	if deps.Catalog != nil {
		matcher = catalog.NewMatcher(deps.Catalog,
			catalog.WithLimits(cfg.Sierra.SearchLimit, cfg.Sierra.ItemLimit),
			catalog.WithClock(now),
			catalog.WithLogger(logger),
		)
	}
	var enricher *openlibrary.Enricher
	if deps.OpenLibrary != nil {
		enricher = openlibrary.NewEnricher(deps.OpenLibrary,
			openlibrary.WithAllowPII(cfg.OpenLibrary.AllowPII),
			openlibrary.WithEnricherClock(now),
			openlibrary.WithEnricherLogger(logger),
		)
	}

	return &Pipeline{
		cfg:   cfg,
		store: store,
		stages: []stage.Stage{
			&evidenceStage{recorder: rec, builder: evidence.Builder{Now: now}},
			&catalogStage{recorder: rec, source: deps.Catalog, matcher: matcher, metrics: deps.Metrics},
			&openLibraryStage{recorder: rec, cfg: cfg.OpenLibrary, enricher: enricher, metrics: deps.Metrics},
			&consortiumStage{recorder: rec},
			&refinementStage{recorder: rec},
			&guidanceStage{recorder: rec},
			&actionsStage{recorder: rec, cfg: cfg.AutoActions},
		},
		rec:     rec,
		metrics: deps.Metrics,
		logger:  logger,
		now:     now,
	}
}

// Stages returns the ordered stage list.
func (p *Pipeline) Stages() []stage.Stage {
	return append([]stage.Stage(nil), p.stages...)
}

// EnabledStages returns the names of stages that will run under the current
// configuration.
func (p *Pipeline) EnabledStages() []string {
	names := make([]string, 0, len(p.stages))
	for _, st := range p.stages {
		if st.Enabled(p.cfg) {
			names = append(names, st.Name())
		}
	}
	return names
}

// HealthCheck reports readiness for stages that depend on external sources.
func (p *Pipeline) HealthCheck(ctx context.Context) []stage.Health {
	var health []stage.Health
	for _, st := range p.stages {
		if !st.Enabled(p.cfg) {
			continue
		}
		if checker, ok := st.(stage.HealthChecker); ok {
			health = append(health, checker.HealthCheck(ctx))
		}
	}
	return health
}

// ProcessRequest claims a pending request and runs every enabled stage. The
// returned error is non-nil only when the request could not be claimed or its
// failure could not be recorded; per-request failures are reported through
// the Outcome.
func (p *Pipeline) ProcessRequest(ctx context.Context, requestID string) (Outcome, error) {
	return p.process(ctx, requestID, p.store.ClaimForProcessing)
}

// Reprocess runs the pipeline for a request regardless of its settled bot
// status. Requests currently processing are left alone.
func (p *Pipeline) Reprocess(ctx context.Context, requestID string) (Outcome, error) {
	return p.process(ctx, requestID, p.store.Reclaim)
}

func (p *Pipeline) process(ctx context.Context, requestID string, claim func(context.Context, string) (bool, error)) (Outcome, error) {
	outcome := Outcome{RequestID: requestID}
	claimed, err := claim(ctx, requestID)
	if err != nil {
		return outcome, services.Wrap(services.ErrTransient, "pipeline", "claim request", "Could not claim request", err)
	}
	if !claimed {
		if current, getErr := p.store.Get(ctx, requestID); getErr == nil && current != nil {
			outcome.Status = current.BotStatus
		}
		return outcome, nil
	}
	outcome.Claimed = true

	done := p.metrics.TrackInFlight()
	defer done()

	ctx = services.WithRequestID(ctx, requestID)
	ctx = services.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, p.logger)
	started := p.now()

	if err := p.execute(ctx, requestID, &outcome); err != nil {
		outcome.Status = requests.BotStatusError
		outcome.Error = err.Error()
		p.metrics.ObserveRequest(string(requests.BotStatusError))
		logging.ErrorWithContext(logger, "request processing failed", "request_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect bot_error on the request and rerun with --request-id"),
		)
		if markErr := p.store.MarkError(ctx, requestID, err.Error()); markErr != nil {
			return outcome, fmt.Errorf("record request failure: %w", errors.Join(err, markErr))
		}
		if emitErr := p.rec.emit(ctx, requestID, requests.EventBotError, map[string]any{"error": err.Error()}); emitErr != nil {
			return outcome, fmt.Errorf("record request failure event: %w", emitErr)
		}
		return outcome, nil
	}

	outcome.Status = requests.BotStatusCompleted
	p.metrics.ObserveRequest(string(requests.BotStatusCompleted))
	logger.Info("request processed",
		logging.String(logging.FieldEventType, "request_complete"),
		logging.Int("stages_run", len(outcome.Stages)),
		logging.Int("stages_failed", len(outcome.StagesFailed())),
		logging.Duration("elapsed", p.now().Sub(started)),
	)
	return outcome, nil
}

// execute is the stage loop. Anything it returns, including a recovered
// panic, marks the request as errored.
func (p *Pipeline) execute(ctx context.Context, requestID string, outcome *Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	if err := p.rec.emit(ctx, requestID, requests.EventBotStarted, nil); err != nil {
		return err
	}
	req, err := p.store.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "load request", "Request disappeared after claim", nil)
	}

	for _, st := range p.stages {
		if !st.Enabled(p.cfg) {
			continue
		}
		result := p.runStage(ctx, st, req)
		outcome.Stages = append(outcome.Stages, result)
		if !result.Success {
			message := result.ErrorMessage()
			if message == "" {
				message = "stage failed"
			}
			payload := map[string]any{"stage": result.Stage, "error": message}
			if err := p.rec.emit(ctx, requestID, requests.EventBotError, payload); err != nil {
				return err
			}
		}

		fresh, err := p.store.Get(ctx, requestID)
		if err != nil {
			return err
		}
		if fresh != nil {
			req = fresh
		}
	}

	if err := p.store.MarkCompleted(ctx, requestID); err != nil {
		return err
	}
	return p.rec.emit(ctx, requestID, requests.EventBotCompleted, map[string]any{
		"stages_run":    outcome.StagesRun(),
		"stages_failed": outcome.StagesFailed(),
	})
}

func (p *Pipeline) runStage(ctx context.Context, st stage.Stage, req *requests.Request) stage.Result {
	name := st.Name()
	ctx = services.WithStage(ctx, name)
	logger := logging.WithContext(ctx, p.logger)
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := p.now()
	result := st.Process(ctx, req)
	result.Duration = p.now().Sub(started)
	if result.Stage == "" {
		result.Stage = name
	}
	p.metrics.ObserveStage(name, result.Outcome(), result.Duration)

	if result.Success {
		logger.Info("stage finished",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("outcome", result.Outcome()),
			logging.String("reason", result.Reason),
			logging.Duration("elapsed", result.Duration),
		)
	} else {
		logging.WarnWithContext(logger, "stage failed", "stage_failed",
			logging.String("error", result.ErrorMessage()),
			logging.String(logging.FieldErrorHint, "the pipeline continued; rerun the request after fixing the cause"),
			logging.String(logging.FieldImpact, "fields owned by this stage were not updated"),
		)
	}
	return result
}
