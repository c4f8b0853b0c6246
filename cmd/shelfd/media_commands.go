package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shelfd/internal/catalog"
	"shelfd/internal/ledger"
	"shelfd/internal/store"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Browse and manage the media library",
	}

	mediaCmd.AddCommand(newMediaListCommand(ctx))
	mediaCmd.AddCommand(newMediaRenameCommand(ctx))
	mediaCmd.AddCommand(newMediaRemoveCommand(ctx))

	return mediaCmd
}

func newMediaListCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				var kind store.MediaKind
				if kindFlag != "" {
					parsed, ok := store.ParseMediaKind(kindFlag)
					if !ok {
						return fmt.Errorf("unknown media kind %q", kindFlag)
					}
					kind = parsed
				}

				cat := catalog.New(s, nil, nil)
				records, err := cat.List(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Library is empty")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, record := range records {
					size := "-"
					if record.SizeBytes > 0 {
						size = catalog.FormatSize(record.SizeBytes)
					} else if info, err := os.Stat(record.Path); err == nil {
						size = catalog.FormatSize(info.Size())
					}
					rows = append(rows, []string{
						record.ID,
						string(record.Kind),
						record.Title,
						size,
						formatAge(record.AddedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "Kind", "Title", "Size", "Added"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Filter by media kind (video, audio, article, book)")
	return cmd
}

func newMediaRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <media-id> <title>",
		Short: "Change the display title of a library entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				cat := catalog.New(s, nil, nil)
				if err := cat.Rename(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s\n", args[0])
				return nil
			})
		},
	}
}

func newMediaRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <media-id>",
		Short: "Remove a library entry (the file on disk is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				cat := catalog.New(s, nil, nil)
				if err := cat.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}
