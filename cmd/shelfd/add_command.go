package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfd/internal/ledger"
	"shelfd/internal/store"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var categoryFlag string
	var titleFlag string

	cmd := &cobra.Command{
		Use:   "add <source>",
		Short: "Enqueue a download or rip job",
		Long:  "Enqueue a job for the given source: a URL for downloads, a device path for disc rips.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, ok := store.ParseCategory(categoryFlag)
			if !ok {
				return fmt.Errorf("unknown category %q", categoryFlag)
			}
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				id, err := l.Enqueue(cmd.Context(), ledger.JobSpec{
					Category: category,
					Title:    titleFlag,
					Source:   args[0],
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s job %s\n", category, id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&categoryFlag, "category", string(store.CategoryVideo), "Job category (rip, video, article, book, playlist, podcast_episode)")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Optional display title")
	return cmd
}
