package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"suggestbot/internal/requests"
)

type eventView struct {
	ID        string         `json:"event_id"`
	Timestamp string         `json:"ts"`
	ActorID   string         `json:"actor_id"`
	Type      string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
}

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "events <request-id>",
		Short: "List the audit events recorded for a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *requests.Store) error {
				req, err := loadRequest(cmd, store, args[0])
				if err != nil {
					return err
				}
				events, err := store.ListEvents(cmd.Context(), req.ID)
				if err != nil {
					return err
				}
				if jsonOut {
					views := make([]eventView, 0, len(events))
					for _, event := range events {
						payload, err := event.Payload()
						if err != nil {
							return err
						}
						views = append(views, eventView{
							ID:        event.ID,
							Timestamp: formatTime(event.Timestamp),
							ActorID:   event.ActorID,
							Type:      string(event.Type),
							Payload:   payload,
						})
					}
					return writeJSON(cmd, views)
				}
				if len(events) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No events")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderEventTable(events))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
