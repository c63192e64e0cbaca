package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"suggestbot/internal/preflight"
	"suggestbot/internal/requests"
	"suggestbot/internal/workflow"
)

var statusOrder = []requests.BotStatus{
	requests.BotStatusPending,
	requests.BotStatusProcessing,
	requests.BotStatusCompleted,
	requests.BotStatusSkipped,
	requests.BotStatusError,
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration checks, stage health, and request counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			logger := ctx.fileLogger()
			rt := buildRuntime(cmd.Context(), cfg, store, logger, nil)
			defer rt.Close()
			mgr := workflow.NewManager(cfg, store, rt.pipeline, workflow.WithLogger(logger))

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string

			lines = append(lines, renderSectionHeader("System", colorize)...)
			if active, err := mgr.RunnerActive(); err != nil {
				lines = append(lines, renderStatusLine("Runner", statusWarn, err.Error(), colorize))
			} else if active {
				lines = append(lines, renderStatusLine("Runner", statusInfo, "active", colorize))
			} else {
				lines = append(lines, renderStatusLine("Runner", statusInfo, "idle", colorize))
			}
			if path := strings.TrimSpace(ctx.configPath); path != "" {
				lines = append(lines, renderStatusLine("Config", statusInfo, path, colorize))
			}
			lines = append(lines, renderStatusLine("Schedule", statusInfo, fmt.Sprintf("every %s", cfg.RunInterval()), colorize))

			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			db := preflight.CheckDatabase(cmd.Context(), store)
			dbKind := statusOK
			if !db.Passed {
				dbKind = statusError
			}
			lines = append(lines, renderStatusLine(db.Name, dbKind, db.Detail, colorize))

			summary := mgr.Status(cmd.Context())
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Stages", colorize)...)
			lines = append(lines, renderStatusLine("Enabled", statusInfo, strings.Join(rt.pipeline.EnabledStages(), ", "), colorize))
			for _, health := range summary.StageHealth {
				if health.Ready {
					lines = append(lines, renderStatusLine(health.Name, statusOK, health.Detail, colorize))
				} else {
					lines = append(lines, renderStatusLine(health.Name, statusWarn, health.Detail, colorize))
				}
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Requests", colorize)...)
			lines = append(lines, renderStatsLines(summary.RequestStats, colorize)...)

			runs, err := store.ListRuns(cmd.Context(), 1)
			if err != nil {
				return err
			}
			if len(runs) > 0 {
				run := runs[0]
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Last run", colorize)...)
				kind := statusOK
				switch run.Status {
				case requests.RunStatusFailed:
					kind = statusError
				case requests.RunStatusRunning, requests.RunStatusCancelled:
					kind = statusWarn
				}
				detail := fmt.Sprintf("%s, %d processed, %d errored, started %s", run.Status, run.Processed, run.Errored, humanAge(run.StartedAt))
				if run.ErrorMessage != "" {
					detail += ": " + run.ErrorMessage
				}
				lines = append(lines, renderStatusLine(run.ID, kind, detail, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func renderStatsLines(stats map[requests.BotStatus]int, colorize bool) []string {
	lines := make([]string, 0, len(stats))
	seen := make(map[requests.BotStatus]bool, len(statusOrder))
	for _, status := range statusOrder {
		seen[status] = true
		lines = append(lines, renderStatusLine(string(status), statsKind(status, stats[status]), fmt.Sprintf("%d", stats[status]), colorize))
	}
	var extra []string
	for status := range stats {
		if !seen[status] {
			extra = append(extra, string(status))
		}
	}
	sort.Strings(extra)
	for _, status := range extra {
		lines = append(lines, renderStatusLine(status, statusWarn, fmt.Sprintf("%d", stats[requests.BotStatus(status)]), colorize))
	}
	return lines
}

func statsKind(status requests.BotStatus, count int) statusKind {
	if count == 0 {
		return statusInfo
	}
	switch status {
	case requests.BotStatusError:
		return statusError
	case requests.BotStatusProcessing:
		return statusWarn
	default:
		return statusInfo
	}
}

func humanAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := time.Since(t).Round(time.Second)
	if age < time.Second {
		return "just now"
	}
	return age.String() + " ago"
}
