package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"shelfd/internal/logging"
)

// State classifies how an external tool invocation ended.
type State string

const (
	StateSuccess   State = "success"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Command describes one external tool invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string

	// Timeout bounds the whole invocation. Zero means no limit.
	Timeout time.Duration
}

// Outcome is the result of a finished invocation.
type Outcome struct {
	State    State
	ExitCode int

	// LastLines holds the most recent output lines, kept for failure
	// diagnostics.
	LastLines []string
}

// Failed reports whether the outcome represents a tool failure.
func (o Outcome) Failed() bool {
	return o.State == StateFailed
}

const (
	defaultGracePeriod = 10 * time.Second
	tailCapacity       = 30
)

// Runner launches and supervises external tool subprocesses. On cancellation
// the subprocess receives SIGTERM and, after the grace period, SIGKILL.
type Runner struct {
	logger *slog.Logger
	grace  time.Duration
}

// New constructs a runner. A non-positive grace period falls back to ten
// seconds.
func New(logger *slog.Logger, grace time.Duration) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	return &Runner{
		logger: logging.WithComponent(logger, "runner"),
		grace:  grace,
	}
}

// Run starts the command and streams its stdout and stderr line-by-line to
// onLine until the process exits. Cancelling ctx terminates the subprocess
// and yields a Cancelled outcome. A non-nil error means the tool could not be
// started at all.
func (r *Runner) Run(ctx context.Context, command Command, onLine func(string)) (Outcome, error) {
	if command.Binary == "" {
		return Outcome{State: StateFailed}, errors.New("command binary must not be empty")
	}
	ctx = ensureContext(ctx)

	runCtx := ctx
	var timeoutCancel context.CancelFunc
	if command.Timeout > 0 {
		runCtx, timeoutCancel = context.WithTimeout(ctx, command.Timeout)
		defer timeoutCancel()
	}

	cmd := exec.CommandContext(runCtx, command.Binary, command.Args...)
	cmd.Dir = command.Dir
	if len(command.Env) > 0 {
		cmd.Env = command.Env
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.grace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Outcome{State: StateFailed}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Outcome{State: StateFailed}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Outcome{State: StateFailed}, fmt.Errorf("start %s: %w", command.Binary, err)
	}

	tail := newTail(tailCapacity)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	consume := func(lines *bufio.Scanner) {
		defer wg.Done()
		lines.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for lines.Scan() {
			line := lines.Text()
			mu.Lock()
			tail.append(line)
			if onLine != nil {
				onLine(line)
			}
			mu.Unlock()
		}
	}
	wg.Add(2)
	go consume(bufio.NewScanner(stdout))
	go consume(bufio.NewScanner(stderr))
	wg.Wait()

	waitErr := cmd.Wait()

	outcome := Outcome{LastLines: tail.lines()}
	switch {
	case runCtx.Err() != nil:
		// Timeout counts as a failure; an external cancel does not.
		if ctx.Err() != nil {
			outcome.State = StateCancelled
		} else {
			outcome.State = StateFailed
			outcome.ExitCode = exitCode(waitErr)
		}
	case waitErr == nil:
		outcome.State = StateSuccess
	default:
		outcome.State = StateFailed
		outcome.ExitCode = exitCode(waitErr)
	}

	r.logger.Debug("subprocess finished",
		logging.String("binary", command.Binary),
		logging.String("state", string(outcome.State)),
		logging.Int(logging.FieldExitCode, outcome.ExitCode))
	return outcome, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	return -1
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
