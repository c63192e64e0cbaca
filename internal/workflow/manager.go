package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"suggestbot/internal/config"
	"suggestbot/internal/logging"
	"suggestbot/internal/metrics"
	"suggestbot/internal/notifications"
	"suggestbot/internal/pipeline"
	"suggestbot/internal/requests"
	"suggestbot/internal/stage"
)

// ErrLocked is returned when another runner holds the state directory lock.
var ErrLocked = errors.New("another suggestbot runner holds the lock")

// Processor runs one request through the pipeline.
type Processor interface {
	ProcessRequest(ctx context.Context, requestID string) (pipeline.Outcome, error)
	Reprocess(ctx context.Context, requestID string) (pipeline.Outcome, error)
	HealthCheck(ctx context.Context) []stage.Health
}

// Manager coordinates batch runs.
type Manager struct {
	cfg       *config.Config
	store     *requests.Store
	processor Processor
	logger    *slog.Logger
	notifier  notifications.Service
	metrics   *metrics.Metrics
	lock      *flock.Flock

	workers       int
	batchSize     int
	pollInterval  time.Duration
	retryInterval time.Duration
	activeLog     string
	now           func() time.Time

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastRun *RunSummary
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier replaces the configured notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithMetrics records run outcomes on m.
func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithWorkers overrides workflow.workers.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithPollInterval overrides the schedule-derived pause between daemon runs.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithActiveLog names the log file retention must never remove.
func WithActiveLog(path string) Option {
	return func(m *Manager) {
		m.activeLog = path
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *requests.Store, processor Processor, opts ...Option) *Manager {
	m := &Manager{
		cfg:           cfg,
		store:         store,
		processor:     processor,
		logger:        logging.NewNop(),
		notifier:      notifications.NewService(cfg),
		lock:          flock.New(cfg.LockPath()),
		workers:       cfg.Workflow.Workers,
		batchSize:     cfg.Bot.MaxRequestsPerRun,
		pollInterval:  cfg.RunInterval(),
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.workers <= 0 {
		m.workers = 1
	}
	if m.retryInterval <= 0 {
		m.retryInterval = m.pollInterval
	}
	m.logger = logging.NewComponentLogger(m.logger, "workflow")
	return m
}
