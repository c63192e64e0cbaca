package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"suggestbot/internal/requests"
)

const staffActor = "staff:cli"

func newRequestsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"request"},
		Short:   "Inspect and update purchase requests",
	}
	cmd.AddCommand(newRequestsListCommand(ctx))
	cmd.AddCommand(newRequestsShowCommand(ctx))
	cmd.AddCommand(newRequestsStatusCommand(ctx))
	cmd.AddCommand(newRequestsNoteCommand(ctx))
	return cmd
}

func newRequestsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests, optionally filtered by bot status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]requests.BotStatus, 0, len(statusFlags))
			for _, raw := range statusFlags {
				status, ok := requests.ParseBotStatus(raw)
				if !ok {
					return fmt.Errorf("unknown bot status %q", raw)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(store *requests.Store) error {
				list, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, requestSummaries(list))
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No requests")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderRequestTable(list))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by bot status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newRequestsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *requests.Store) error {
				req, err := loadRequest(cmd, store, args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, req)
				}
				printRequestDetail(cmd.OutOrStdout(), req)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newRequestsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <new|in_review|ordered|declined|duplicate_or_already_owned>",
		Short: "Change the staff review status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := requests.ParseStaffStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown staff status %q", args[1])
			}
			return ctx.withStore(func(store *requests.Store) error {
				if err := store.UpdateStaffStatus(cmd.Context(), args[0], status, staffActor); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Request %s status set to %s\n", args[0], status)
				return nil
			})
		},
	}
}

func newRequestsNoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Replace the staff notes on a request",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := strings.Join(args[1:], " ")
			return ctx.withStore(func(store *requests.Store) error {
				if err := store.AddStaffNote(cmd.Context(), args[0], note, staffActor); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Note saved on request %s\n", args[0])
				return nil
			})
		},
	}
}

func loadRequest(cmd *cobra.Command, store *requests.Store, id string) (*requests.Request, error) {
	id = strings.TrimSpace(id)
	req, err := store.Get(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request %s not found", id)
	}
	return req, nil
}

type requestSummary struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_ts"`
	RawQuery     string `json:"raw_query"`
	Status       string `json:"status"`
	BotStatus    string `json:"bot_status"`
	CatalogMatch string `json:"catalog_match,omitempty"`
	BotAction    string `json:"bot_action,omitempty"`
}

func requestSummaries(list []*requests.Request) []requestSummary {
	out := make([]requestSummary, 0, len(list))
	for _, req := range list {
		out = append(out, requestSummary{
			ID:           req.ID,
			CreatedAt:    formatTime(req.CreatedAt),
			RawQuery:     req.RawQuery,
			Status:       string(req.Status),
			BotStatus:    string(req.BotStatus),
			CatalogMatch: string(req.CatalogMatch),
			BotAction:    req.BotAction,
		})
	}
	return out
}
