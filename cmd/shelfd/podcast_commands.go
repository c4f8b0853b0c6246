package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfd/internal/ledger"
	"shelfd/internal/podcasts"
	"shelfd/internal/store"
)

func newPodcastCommand(ctx *commandContext) *cobra.Command {
	podcastCmd := &cobra.Command{
		Use:   "podcast",
		Short: "Manage podcast subscriptions",
	}

	podcastCmd.AddCommand(newPodcastAddCommand(ctx))
	podcastCmd.AddCommand(newPodcastListCommand(ctx))
	podcastCmd.AddCommand(newPodcastRemoveCommand(ctx))
	podcastCmd.AddCommand(newPodcastCheckCommand(ctx))

	return podcastCmd
}

func newPodcastAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <feed-url>",
		Short: "Subscribe to a podcast feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				registry := podcasts.New(s, l, nil, nil)
				podcast, err := registry.Subscribe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Subscribed to %q (%s)\n", podcast.Title, podcast.ID)
				fmt.Fprintln(cmd.OutOrStdout(), "Existing episodes were recorded; only new episodes will download.")
				return nil
			})
		},
	}
}

func newPodcastListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List podcast subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				registry := podcasts.New(s, l, nil, nil)
				subscriptions, err := registry.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(subscriptions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No podcast subscriptions")
					return nil
				}

				rows := make([][]string, 0, len(subscriptions))
				for _, podcast := range subscriptions {
					checked := "never"
					if podcast.LastCheckedAt != nil {
						checked = formatAge(*podcast.LastCheckedAt)
					}
					rows = append(rows, []string{podcast.ID, podcast.Title, podcast.FeedURL, checked})
				}
				table := renderTable(
					[]string{"ID", "Title", "Feed", "Checked"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newPodcastRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <podcast-id>",
		Short: "Unsubscribe from a podcast feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				registry := podcasts.New(s, l, nil, nil)
				if err := registry.Unsubscribe(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unsubscribed %s\n", args[0])
				return nil
			})
		},
	}
}

func newPodcastCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Sweep all feeds now and enqueue new episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				registry := podcasts.New(s, l, nil, nil)
				count, err := registry.CheckAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %d new episodes\n", count)
				return nil
			})
		},
	}
}
