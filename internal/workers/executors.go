package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shelfd/internal/runner"
	"shelfd/internal/store"
)

// ErrCancelled marks an execution that ended because the job was cancelled.
// It is not a failure.
var ErrCancelled = errors.New("job cancelled")

// ToolError describes an external tool that exited unsuccessfully.
type ToolError struct {
	Tool     string
	ExitCode int
	Tail     []string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if tail := lastNonEmpty(e.Tail, 3); len(tail) > 0 {
		msg += ": " + strings.Join(tail, " | ")
	}
	return msg
}

func lastNonEmpty(lines []string, n int) []string {
	var kept []string
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append([]string{line}, kept...)
		}
	}
	return kept
}

// ReportFunc receives progress updates during execution.
type ReportFunc func(percent float64, eta, throughput string)

// Executor performs one category's work for a single claimed job and returns
// the path of the file it produced.
type Executor interface {
	Execute(ctx context.Context, job *store.Job, report ReportFunc) (string, error)
}

// ToolRunner launches supervised subprocesses. Satisfied by runner.Runner.
type ToolRunner interface {
	Run(ctx context.Context, command runner.Command, onLine func(string)) (runner.Outcome, error)
}

// toolPlan is a ready-to-run tool invocation plus how to read its progress.
type toolPlan struct {
	command runner.Command
	parse   lineParser
	output  string
}

// toolExecutor shells out to an external tool and parses its progress
// stream.
type toolExecutor struct {
	runner ToolRunner
	plan   func(job *store.Job) (toolPlan, error)
}

func (e *toolExecutor) Execute(ctx context.Context, job *store.Job, report ReportFunc) (string, error) {
	plan, err := e.plan(job)
	if err != nil {
		return "", err
	}

	onLine := func(string) {}
	if plan.parse != nil && report != nil {
		parse := plan.parse
		onLine = func(line string) {
			if update, ok := parse(line); ok {
				report(update.Percent, update.ETA, update.Throughput)
			}
		}
	}

	outcome, err := e.runner.Run(ctx, plan.command, onLine)
	if err != nil {
		return "", fmt.Errorf("launch %s: %w", plan.command.Binary, err)
	}

	switch outcome.State {
	case runner.StateCancelled:
		return "", ErrCancelled
	case runner.StateFailed:
		return "", &ToolError{
			Tool:     plan.command.Binary,
			ExitCode: outcome.ExitCode,
			Tail:     outcome.LastLines,
		}
	default:
		return plan.output, nil
	}
}
