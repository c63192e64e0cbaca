package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"suggestbot/internal/config"
	"suggestbot/internal/notifications"
	"suggestbot/internal/pipeline"
	"suggestbot/internal/requests"
	"suggestbot/internal/services"
	"suggestbot/internal/stage"
	"suggestbot/internal/testsupport"
	"suggestbot/internal/workflow"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   notifications.Payload
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.last = payload
	return nil
}

func (r *recordingNotifier) snapshot() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}

type fakeProcessor struct {
	mu       sync.Mutex
	statuses map[string]requests.BotStatus
	failOn   string
	calls    []string
}

func (f *fakeProcessor) ProcessRequest(_ context.Context, id string) (pipeline.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if id == f.failOn {
		return pipeline.Outcome{RequestID: id}, errors.New("database is locked")
	}
	status, ok := f.statuses[id]
	if !ok {
		status = requests.BotStatusCompleted
	}
	return pipeline.Outcome{RequestID: id, Claimed: true, Status: status}, nil
}

func (f *fakeProcessor) Reprocess(ctx context.Context, id string) (pipeline.Outcome, error) {
	return f.ProcessRequest(ctx, id)
}

func (f *fakeProcessor) HealthCheck(context.Context) []stage.Health {
	return []stage.Health{stage.Healthy("fake")}
}

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, testsupport.WithStages(config.Stages{}))
}

func TestRunOnceProcessesPendingRequests(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	for _, query := range []string{"ISBN 0306406152", "The Left Hand of Darkness", "Dune"} {
		testsupport.NewRequest(t, store, query)
	}
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(cfg, store, pipeline.New(cfg, store, pipeline.Deps{}), workflow.WithNotifier(notifier))

	summary, err := mgr.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Status != requests.RunStatusCompleted || summary.Processed != 3 || summary.Errored != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	run, err := store.GetRun(context.Background(), summary.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.Status != requests.RunStatusCompleted || run.Processed != 3 || run.CompletedAt == nil {
		t.Fatalf("unexpected run record %+v", run)
	}
	pending, err := store.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending requests, got %v", pending)
	}
	if got := notifier.snapshot(); len(got) != 1 || got[0] != notifications.EventRunCompleted {
		t.Fatalf("notifications = %v", got)
	}
	if notifier.last["processed"] != 3 {
		t.Fatalf("unexpected payload %v", notifier.last)
	}
}

func TestRunOnceWithNothingPending(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, &fakeProcessor{})

	summary, err := mgr.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Status != requests.RunStatusCompleted || summary.Processed != 0 || summary.Pending != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunOnceCountsErroredRequests(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.NewRequest(t, store, "one")
	testsupport.NewRequest(t, store, "two")
	proc := &fakeProcessor{statuses: map[string]requests.BotStatus{first.ID: requests.BotStatusError}}
	mgr := workflow.NewManager(cfg, store, proc, workflow.WithWorkers(2))

	summary, err := mgr.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Status != requests.RunStatusCompleted || summary.Processed != 1 || summary.Errored != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	run, err := store.GetRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Errored != 1 || run.Processed != 1 {
		t.Fatalf("unexpected run record %+v", run)
	}
}

func TestRunOnceFailsRunOnProcessorError(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	req := testsupport.NewRequest(t, store, "one")
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(cfg, store, &fakeProcessor{failOn: req.ID}, workflow.WithNotifier(notifier))

	summary, err := mgr.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected run error")
	}
	if summary.Status != requests.RunStatusFailed || summary.Error == "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	run, err := store.GetRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != requests.RunStatusFailed || run.ErrorMessage == "" {
		t.Fatalf("unexpected run record %+v", run)
	}
	if got := notifier.snapshot(); len(got) != 1 || got[0] != notifications.EventRunFailed {
		t.Fatalf("notifications = %v", got)
	}
	status := mgr.Status(context.Background())
	if status.LastError == "" || status.LastRun == nil || status.LastRun.RunID != summary.RunID {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestRunOnceRejectsConcurrentRunner(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	mgr := workflow.NewManager(cfg, store, &fakeProcessor{})
	if _, err := mgr.RunOnce(context.Background()); !errors.Is(err, workflow.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunOnceResetsInterruptedWork(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	req := testsupport.NewRequest(t, store, "stuck")
	if ok, err := store.ClaimForProcessing(ctx, req.ID); err != nil || !ok {
		t.Fatalf("ClaimForProcessing: %v %v", ok, err)
	}
	stale, err := store.CreateRun(ctx, "")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	proc := &fakeProcessor{}
	mgr := workflow.NewManager(cfg, store, proc)
	summary, err := mgr.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Processed != 1 || len(proc.calls) != 1 || proc.calls[0] != req.ID {
		t.Fatalf("expected stuck request to be retried, summary %+v calls %v", summary, proc.calls)
	}
	old, err := store.GetRun(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if old.Status != requests.RunStatusFailed {
		t.Fatalf("stale run status = %s", old.Status)
	}
}

func TestRunOnceHonorsBatchSize(t *testing.T) {
	cfg := newConfig(t)
	cfg.Bot.MaxRequestsPerRun = 2
	store := testsupport.MustOpenStore(t, cfg)
	for _, query := range []string{"a", "b", "c"} {
		testsupport.NewRequest(t, store, query)
	}
	mgr := workflow.NewManager(cfg, store, pipeline.New(cfg, store, pipeline.Deps{}))

	pending, err := mgr.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	summary, err := mgr.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("processed = %d", summary.Processed)
	}
	left, err := store.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(left) != 1 {
		t.Fatalf("expected 1 request left, got %d", len(left))
	}
}

func TestProcessSingleReprocessesCompletedRequest(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	req := testsupport.NewRequest(t, store, "ISBN 0306406152")
	mgr := workflow.NewManager(cfg, store, pipeline.New(cfg, store, pipeline.Deps{}))

	if _, err := mgr.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	outcome, err := mgr.ProcessSingle(ctx, req.ID)
	if err != nil {
		t.Fatalf("ProcessSingle: %v", err)
	}
	if !outcome.Claimed || outcome.Status != requests.BotStatusCompleted {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	events, err := store.ListEvents(ctx, req.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	started := 0
	for _, event := range events {
		if event.Type == requests.EventBotStarted {
			started++
		}
	}
	if started != 2 {
		t.Fatalf("expected two bot_started events, got %d", started)
	}
}

func TestProcessSingleUnknownRequest(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, &fakeProcessor{})

	_, err := mgr.ProcessSingle(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartStopRunsScheduledBatches(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	req := testsupport.NewRequest(t, store, "Dune")
	mgr := workflow.NewManager(cfg, store, pipeline.New(cfg, store, pipeline.Deps{}),
		workflow.WithPollInterval(20*time.Millisecond),
	)

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := store.Get(ctx, req.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.BotStatus == requests.BotStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("request not processed, status %s", got.BotStatus)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !mgr.Status(ctx).Running {
		t.Fatal("expected running status")
	}
	mgr.Stop()
	status := mgr.Status(ctx)
	if status.Running || status.LastRun == nil {
		t.Fatalf("unexpected status after stop %+v", status)
	}
	if status.RequestStats[requests.BotStatusCompleted] != 1 {
		t.Fatalf("unexpected stats %v", status.RequestStats)
	}

	// The lock is released so a one-shot run can proceed.
	if _, err := mgr.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce after Stop: %v", err)
	}
}

func TestRunnerActive(t *testing.T) {
	cfg := newConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, &fakeProcessor{})

	active, err := mgr.RunnerActive()
	if err != nil || active {
		t.Fatalf("expected idle runner, got %v %v", active, err)
	}

	held := flock.New(cfg.LockPath())
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer held.Unlock()

	active, err = mgr.RunnerActive()
	if err != nil || !active {
		t.Fatalf("expected active runner, got %v %v", active, err)
	}
}

func TestRunOnceConcurrentWorkersOnRealStore(t *testing.T) {
	cfg := newConfig(t)
	cfg.Workflow.Workers = 8
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ids := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		ids = append(ids, testsupport.NewRequest(t, store, fmt.Sprintf("Concurrent title %d", i)).ID)
	}
	mgr := workflow.NewManager(cfg, store, pipeline.New(cfg, store, pipeline.Deps{}))

	summary, err := mgr.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Status != requests.RunStatusCompleted || summary.Processed != len(ids) || summary.Errored != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	for _, id := range ids {
		req, err := store.Get(ctx, id)
		if err != nil || req == nil {
			t.Fatalf("Get %s: %v %v", id, req, err)
		}
		if req.BotStatus != requests.BotStatusCompleted {
			t.Fatalf("request %s bot_status = %s", id, req.BotStatus)
		}
		events, err := store.ListEvents(ctx, id)
		if err != nil {
			t.Fatalf("ListEvents %s: %v", id, err)
		}
		started, completed := -1, -1
		for i, event := range events {
			switch event.Type {
			case requests.EventBotStarted:
				started = i
			case requests.EventBotCompleted:
				completed = i
			}
		}
		if started < 0 || completed < 0 || started > completed {
			t.Fatalf("request %s events out of order: started=%d completed=%d", id, started, completed)
		}
	}
}
