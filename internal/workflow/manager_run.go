package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"suggestbot/internal/logging"
	"suggestbot/internal/pipeline"
	"suggestbot/internal/requests"
	"suggestbot/internal/services"
)

// RunSummary describes one finished batch.
type RunSummary struct {
	RunID       string
	Status      requests.RunStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Pending     int
	Processed   int
	Errored     int
	// Skipped counts requests another worker claimed first.
	Skipped  int
	Outcomes []pipeline.Outcome
	Error    string
}

// Duration is the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	if s.CompletedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// RunOnce takes the runner lock and processes one batch of pending requests.
// The returned error is non-nil when the run could not start or failed at the
// orchestrator level; individual request errors only show in the summary.
func (m *Manager) RunOnce(ctx context.Context) (RunSummary, error) {
	if err := m.acquireLock(); err != nil {
		return RunSummary{}, err
	}
	defer m.releaseLock()
	m.resetInterrupted(ctx)
	return m.runBatch(ctx)
}

// ProcessSingle runs one request regardless of its current bot status.
func (m *Manager) ProcessSingle(ctx context.Context, requestID string) (pipeline.Outcome, error) {
	if err := m.acquireLock(); err != nil {
		return pipeline.Outcome{}, err
	}
	defer m.releaseLock()

	req, err := m.store.Get(ctx, requestID)
	if err != nil {
		return pipeline.Outcome{}, err
	}
	if req == nil {
		return pipeline.Outcome{}, services.Wrap(services.ErrNotFound, "workflow", "process single",
			fmt.Sprintf("Request %s not found", requestID), nil)
	}
	outcome, err := m.processor.Reprocess(ctx, requestID)
	if err != nil {
		return outcome, err
	}
	if !outcome.Claimed {
		return outcome, services.Wrap(services.ErrValidation, "workflow", "process single",
			fmt.Sprintf("Request %s is already being processed", requestID), nil)
	}
	return outcome, nil
}

// Pending lists the requests the next run would pick up.
func (m *Manager) Pending(ctx context.Context) ([]*requests.Request, error) {
	ids, err := m.store.ListPending(ctx, m.batchSize)
	if err != nil {
		return nil, err
	}
	pending := make([]*requests.Request, 0, len(ids))
	for _, id := range ids {
		req, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if req != nil {
			pending = append(pending, req)
		}
	}
	return pending, nil
}

func (m *Manager) runBatch(ctx context.Context) (RunSummary, error) {
	run, err := m.store.CreateRun(ctx, m.cfg.Snapshot())
	if err != nil {
		return RunSummary{}, fmt.Errorf("create run: %w", err)
	}
	summary := RunSummary{RunID: run.ID, StartedAt: run.StartedAt, Status: requests.RunStatusRunning}
	ctx = services.WithRunID(ctx, run.ID)
	logger := logging.WithContext(ctx, m.logger)

	ids, err := m.store.ListPending(ctx, m.batchSize)
	if err != nil {
		return m.finishRun(ctx, summary, requests.RunStatusFailed, err)
	}
	summary.Pending = len(ids)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("pending", len(ids)),
		logging.Int("workers", m.workers),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			// A started request always finishes even if a stop arrives.
			outcome, err := m.processor.ProcessRequest(context.WithoutCancel(gctx), id)
			mu.Lock()
			defer mu.Unlock()
			summary.Outcomes = append(summary.Outcomes, outcome)
			switch {
			case err != nil:
			case !outcome.Claimed:
				summary.Skipped++
			case outcome.Errored():
				summary.Errored++
			default:
				summary.Processed++
			}
			return err
		})
	}
	waitErr := g.Wait()

	switch {
	case waitErr != nil:
		return m.finishRun(ctx, summary, requests.RunStatusFailed, waitErr)
	case ctx.Err() != nil:
		return m.finishRun(ctx, summary, requests.RunStatusCancelled, nil)
	default:
		return m.finishRun(ctx, summary, requests.RunStatusCompleted, nil)
	}
}

func (m *Manager) finishRun(ctx context.Context, summary RunSummary, status requests.RunStatus, runErr error) (RunSummary, error) {
	ctx = context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, m.logger)
	summary.Status = status
	summary.CompletedAt = m.now()
	message := ""
	if runErr != nil {
		message = runErr.Error()
		summary.Error = message
	}

	if err := m.store.CompleteRun(ctx, summary.RunID, status, summary.Processed, summary.Errored, message); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("complete run: %w", err))
	}
	m.metrics.ObserveRun(string(status))
	m.recordRun(summary, runErr)

	if status == requests.RunStatusFailed {
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.String("error", message),
			logging.Int("processed", summary.Processed),
			logging.Int("errored", summary.Errored),
			logging.String(logging.FieldErrorHint, "check database access, then rerun with --once"),
		)
	} else {
		logger.Info("run finished",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.String("status", string(status)),
			logging.Int("processed", summary.Processed),
			logging.Int("errored", summary.Errored),
			logging.Int("skipped", summary.Skipped),
			logging.Duration("elapsed", summary.Duration()),
		)
	}
	m.notifyRun(ctx, summary)

	if runErr != nil {
		return summary, runErr
	}
	return summary, nil
}
