package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"suggestbot/internal/requests"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect bot batch runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *requests.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderRunTable(runs))
				return nil
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show")
	cmd.AddCommand(list)
	return cmd
}
