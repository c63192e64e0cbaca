package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"suggestbot/internal/config"
	"suggestbot/internal/logging"
	"suggestbot/internal/metrics"
	"suggestbot/internal/pipeline"
	"suggestbot/internal/requests"
	"suggestbot/internal/workflow"
)

type runOptions struct {
	once      bool
	daemon    bool
	requestID string
	workers   int
	dryRun    bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending purchase requests",
		Long: `Process pending purchase requests through the bot pipeline.

By default one batch of up to bot.max_requests_per_run requests is processed
and the command exits. Use --daemon to keep running on the bot.schedule
interval, or --request-id to re-run a single request regardless of status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.once && opts.daemon {
				return errors.New("--once and --daemon are mutually exclusive")
			}
			if opts.daemon && strings.TrimSpace(opts.requestID) != "" {
				return errors.New("--request-id cannot be combined with --daemon")
			}
			return runBot(cmd, ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.once, "once", false, "Process one batch and exit (default)")
	cmd.Flags().BoolVar(&opts.daemon, "daemon", false, "Keep processing on the configured schedule")
	cmd.Flags().StringVar(&opts.requestID, "request-id", "", "Process only this request")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent requests per batch (overrides workflow.workers)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "List the requests a run would process without changing anything")
	return cmd
}

func runBot(cmd *cobra.Command, ctx *commandContext, opts runOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	var m *metrics.Metrics
	if opts.daemon && cfg.Metrics.Enabled {
		m = metrics.New(prometheus.NewRegistry())
	}

	rt := buildRuntime(cmd.Context(), cfg, store, logger, m)
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to release run resources", logging.Error(err))
		}
	}()

	mgr := workflow.NewManager(cfg, store, rt.pipeline,
		workflow.WithLogger(logger),
		workflow.WithMetrics(m),
		workflow.WithWorkers(opts.workers),
		workflow.WithActiveLog(activeLogPath(cfg)),
	)

	switch {
	case opts.dryRun:
		return printDryRun(cmd, store, mgr, rt.pipeline, strings.TrimSpace(opts.requestID))
	case strings.TrimSpace(opts.requestID) != "":
		outcome, err := mgr.ProcessSingle(cmd.Context(), strings.TrimSpace(opts.requestID))
		if err != nil {
			return err
		}
		printOutcome(out, outcome)
		return nil
	case opts.daemon:
		return runDaemon(cmd.Context(), cfg, mgr, m, logger)
	default:
		summary, err := mgr.RunOnce(cmd.Context())
		if summary.RunID != "" {
			printRunSummary(out, summary)
		}
		return err
	}
}

func runDaemon(parent context.Context, cfg *config.Config, mgr *workflow.Manager, m *metrics.Metrics, logger *slog.Logger) error {
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if m != nil {
		stopMetrics, err := serveMetrics(cfg.Metrics.Bind, m, logger)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	if err := mgr.Start(signalCtx); err != nil {
		return err
	}
	<-signalCtx.Done()
	logger.Info("suggestbot shutting down")
	mgr.Stop()
	return nil
}

func serveMetrics(bind string, m *metrics.Metrics, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("listen on metrics.bind %s: %w", bind, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "metrics_server_failed"),
				logging.String(logging.FieldErrorHint, "check metrics.bind"),
			)
		}
	}()
	logger.Info("serving metrics", logging.String("addr", listener.Addr().String()))
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}, nil
}

func printDryRun(cmd *cobra.Command, store *requests.Store, mgr *workflow.Manager, p *pipeline.Pipeline, requestID string) error {
	out := cmd.OutOrStdout()
	var pending []*requests.Request
	if requestID != "" {
		req, err := store.Get(cmd.Context(), requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("request %s not found", requestID)
		}
		pending = []*requests.Request{req}
	} else {
		list, err := mgr.Pending(cmd.Context())
		if err != nil {
			return err
		}
		pending = list
	}

	fmt.Fprintf(out, "Enabled stages: %s\n", strings.Join(p.EnabledStages(), ", "))
	if len(pending) == 0 {
		fmt.Fprintln(out, "No pending requests")
		return nil
	}
	fmt.Fprintf(out, "Would process %d request(s):\n", len(pending))
	fmt.Fprintln(out, renderRequestTable(pending))
	return nil
}

func printOutcome(out io.Writer, outcome pipeline.Outcome) {
	fmt.Fprintf(out, "Request %s: %s\n", outcome.RequestID, outcome.Status)
	fmt.Fprintf(out, "Stages run: %s\n", strings.Join(outcome.StagesRun(), ", "))
	if failed := outcome.StagesFailed(); len(failed) > 0 {
		fmt.Fprintf(out, "Stages failed: %s\n", strings.Join(failed, ", "))
	}
	if outcome.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", outcome.Error)
	}
}

func printRunSummary(out io.Writer, summary workflow.RunSummary) {
	fmt.Fprintf(out, "Run %s %s: %d processed, %d errored", summary.RunID, summary.Status, summary.Processed, summary.Errored)
	if summary.Skipped > 0 {
		fmt.Fprintf(out, ", %d skipped", summary.Skipped)
	}
	fmt.Fprintf(out, " in %s\n", summary.Duration().Round(time.Millisecond))
}
