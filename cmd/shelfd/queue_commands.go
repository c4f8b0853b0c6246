package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shelfd/internal/ledger"
	"shelfd/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueCancelCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var categoryFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				filter := store.JobFilter{Limit: limitFlag}
				if statusFlag != "" {
					status, ok := store.ParseStatus(statusFlag)
					if !ok {
						return fmt.Errorf("unknown status %q", statusFlag)
					}
					filter.Status = status
				}
				if categoryFlag != "" {
					category, ok := store.ParseCategory(categoryFlag)
					if !ok {
						return fmt.Errorf("unknown category %q", categoryFlag)
					}
					filter.Category = category
				}

				jobs, err := l.Jobs(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						string(job.Category),
						paintStatus(job.Status, colorize),
						formatProgress(job),
						jobTitle(job),
						formatAge(job.CreatedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "Category", "Status", "Progress", "Title", "Age"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (queued, running, done, failed, cancelled)")
	cmd.Flags().StringVar(&categoryFlag, "category", "", "Filter by job category")
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum number of jobs to show")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				job, err := l.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", job.ID)
				fmt.Fprintf(out, "Category:  %s\n", job.Category)
				fmt.Fprintf(out, "Status:    %s\n", paintStatus(job.Status, shouldColorize(out)))
				fmt.Fprintf(out, "Title:     %s\n", jobTitle(job))
				fmt.Fprintf(out, "Source:    %s\n", job.Source)
				fmt.Fprintf(out, "Progress:  %s\n", formatProgress(job))
				if job.ETA != "" {
					fmt.Fprintf(out, "ETA:       %s\n", job.ETA)
				}
				if job.Throughput != "" {
					fmt.Fprintf(out, "Speed:     %s\n", job.Throughput)
				}
				if job.ClaimedBy != "" {
					fmt.Fprintf(out, "Worker:    %s\n", job.ClaimedBy)
				}
				fmt.Fprintf(out, "Created:   %s\n", formatTimestamp(job.CreatedAt))
				if job.StartedAt != nil {
					fmt.Fprintf(out, "Started:   %s\n", formatTimestamp(*job.StartedAt))
				}
				if job.CompletedAt != nil {
					fmt.Fprintf(out, "Finished:  %s\n", formatTimestamp(*job.CompletedAt))
				}
				if job.OutputPath != "" {
					fmt.Fprintf(out, "Output:    %s\n", job.OutputPath)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
				}
				if len(job.Params) > 0 {
					pairs := make([]string, 0, len(job.Params))
					for key, value := range job.Params {
						pairs = append(pairs, key+"="+value)
					}
					fmt.Fprintf(out, "Params:    %s\n", strings.Join(pairs, " "))
				}
				return nil
			})
		},
	}
}

func newQueueCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				if err := l.Cancel(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled job %s\n", args[0])
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Enqueue a fresh copy of a failed or cancelled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				newID, err := l.Retry(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued as job %s\n", newID)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store.Store, l *ledger.Ledger) error {
				removed, err := s.ClearTerminalJobs(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished jobs\n", removed)
				return nil
			})
		},
	}
}
