package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"suggestbot/internal/requests"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var format string
	var notes string
	var patron int64
	var actor string

	cmd := &cobra.Command{
		Use:   "submit <text>",
		Short: "Record a new purchase suggestion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("suggestion text is required")
			}
			return ctx.withStore(func(store *requests.Store) error {
				req, err := store.Submit(cmd.Context(), requests.Submission{
					PatronRecordID:   patron,
					RawQuery:         query,
					FormatPreference: format,
					PatronNotes:      notes,
				}, actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted request %s\n", req.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Preferred format (book, ebook, audiobook, ...)")
	cmd.Flags().StringVar(&notes, "notes", "", "Patron notes")
	cmd.Flags().Int64Var(&patron, "patron", 0, "Patron record id")
	cmd.Flags().StringVar(&actor, "actor", "", "Actor recorded on the submitted event")
	return cmd
}
