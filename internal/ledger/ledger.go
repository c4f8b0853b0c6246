package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelfd/internal/broadcast"
	"shelfd/internal/logging"
	"shelfd/internal/store"
)

// Ledger enforces the job state machine on top of the store. It is the only
// writer of job status transitions.
type Ledger struct {
	store  *store.Store
	hub    *broadcast.Hub
	logger *slog.Logger

	mu         sync.Mutex
	cancellers map[string]func()
}

// New constructs a ledger. The hub may be nil; events are then discarded.
func New(s *store.Store, hub *broadcast.Hub, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ledger{
		store:      s,
		hub:        hub,
		logger:     logging.WithComponent(logger, "ledger"),
		cancellers: make(map[string]func()),
	}
}

// JobSpec describes a job submission.
type JobSpec struct {
	Category store.Category
	Title    string
	Source   string
	Params   map[string]string
}

// Enqueue validates the spec and writes a new queued job, returning its id.
// It never blocks on external tools.
func (l *Ledger) Enqueue(ctx context.Context, spec JobSpec) (string, error) {
	if _, ok := store.ParseCategory(string(spec.Category)); !ok {
		return "", fmt.Errorf("%w: unknown category %q", ErrValidation, spec.Category)
	}
	if strings.TrimSpace(spec.Source) == "" {
		return "", fmt.Errorf("%w: source must not be empty", ErrValidation)
	}

	job := &store.Job{
		ID:       newJobID(),
		Category: spec.Category,
		Title:    strings.TrimSpace(spec.Title),
		Source:   spec.Source,
		Params:   spec.Params,
		Status:   store.StatusQueued,
	}
	if err := l.store.CreateJob(ctx, job); err != nil {
		return "", err
	}

	l.logger.Info("job enqueued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCategory, string(job.Category)))
	l.publish(broadcast.EventJobCreated, job.ID, job)
	return job.ID, nil
}

// ClaimNext atomically takes ownership of the oldest queued job in a
// category. Returns nil when the queue is empty. Safe under concurrent
// callers: each job is handed to exactly one claimant.
func (l *Ledger) ClaimNext(ctx context.Context, category store.Category, claimedBy string) (*store.Job, error) {
	for {
		candidate, err := l.store.NextQueuedJob(ctx, category)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			return nil, nil
		}

		claimed, err := l.store.MarkJobRunning(ctx, candidate.ID, claimedBy, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if !claimed {
			// Another claimant or a cancel got there first. Try the next
			// candidate.
			continue
		}

		job, err := l.store.GetJob(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		l.logger.Info("job claimed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldCategory, string(job.Category)),
			logging.String(logging.FieldWorker, claimedBy))
		l.publish(broadcast.EventJobUpdated, job.ID, job)
		return job, nil
	}
}

// ReportProgress records progress for a running job. Reports against a job
// that is no longer running are ignored, not an error: the job may have been
// cancelled concurrently.
func (l *Ledger) ReportProgress(ctx context.Context, id string, progress float64, eta, throughput string) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	updated, err := l.store.UpdateJobProgress(ctx, id, progress, eta, throughput)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}

	job, err := l.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	l.publish(broadcast.EventJobUpdated, id, job)
	return nil
}

// Complete moves a running job to done and records its output locator.
func (l *Ledger) Complete(ctx context.Context, id, outputPath string) error {
	return l.finish(ctx, id, []store.Status{store.StatusRunning}, store.StatusDone, "", outputPath)
}

// Fail moves a running job to failed with a human-readable message.
func (l *Ledger) Fail(ctx context.Context, id, message string) error {
	if strings.TrimSpace(message) == "" {
		message = "job failed"
	}
	return l.finish(ctx, id, []store.Status{store.StatusRunning}, store.StatusFailed, message, "")
}

// Cancel moves a queued or running job to cancelled. A running job's
// subprocess is signalled before the transition is finalized.
func (l *Ledger) Cancel(ctx context.Context, id string) error {
	l.mu.Lock()
	cancel := l.cancellers[id]
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	return l.finish(ctx, id,
		[]store.Status{store.StatusQueued, store.StatusRunning}, store.StatusCancelled, "", "")
}

// Retry clones a failed or cancelled job into a fresh queued job and returns
// the new id. The original row is left untouched.
func (l *Ledger) Retry(ctx context.Context, id string) (string, error) {
	job, err := l.store.GetJob(ctx, id)
	if err != nil {
		return "", err
	}
	switch job.Status {
	case store.StatusFailed, store.StatusCancelled:
	default:
		return "", &InvalidTransitionError{JobID: id, From: job.Status, To: store.StatusQueued}
	}

	return l.Enqueue(ctx, JobSpec{
		Category: job.Category,
		Title:    job.Title,
		Source:   job.Source,
		Params:   job.Params,
	})
}

// RequeueOrphaned moves jobs left running by a dead process back to queued.
// Call once at startup, before any worker loop begins.
func (l *Ledger) RequeueOrphaned(ctx context.Context) ([]string, error) {
	ids, err := l.store.RequeueOrphanedJobs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		l.logger.Warn("requeued orphaned job", logging.String(logging.FieldJobID, id))
	}
	return ids, nil
}

// Job fetches one job by id.
func (l *Ledger) Job(ctx context.Context, id string) (*store.Job, error) {
	return l.store.GetJob(ctx, id)
}

// Jobs lists jobs matching the filter, newest first.
func (l *Ledger) Jobs(ctx context.Context, filter store.JobFilter) ([]*store.Job, error) {
	return l.store.ListJobs(ctx, filter)
}

// RegisterCanceller attaches the running job's subprocess terminator so
// Cancel can reach it. The returned release function must be called when the
// job finishes.
func (l *Ledger) RegisterCanceller(id string, cancel func()) func() {
	l.mu.Lock()
	l.cancellers[id] = cancel
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.cancellers, id)
			l.mu.Unlock()
		})
	}
}

func (l *Ledger) finish(ctx context.Context, id string, from []store.Status, to store.Status, message, outputPath string) error {
	finished, err := l.store.FinishJob(ctx, id, from, to, message, outputPath)
	if err != nil {
		return err
	}

	job, getErr := l.store.GetJob(ctx, id)
	if getErr != nil {
		return getErr
	}

	if !finished {
		return &InvalidTransitionError{JobID: id, From: job.Status, To: to}
	}

	l.logger.Info("job finished",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldStatus, string(to)))
	l.publish(broadcast.EventJobUpdated, id, job)
	return nil
}

func (l *Ledger) publish(eventType broadcast.EventType, id string, job *store.Job) {
	if l.hub == nil {
		return
	}
	event := broadcast.Event{Type: eventType, JobID: id}
	if job != nil {
		event.Category = string(job.Category)
		event.Status = string(job.Status)
		event.Progress = job.Progress
		event.ETA = job.ETA
		event.Throughput = job.Throughput
	}
	l.hub.Publish(event)
}

// newJobID returns a short opaque id. Eight hex characters of a random UUID
// keeps ids easy to quote in CLI output while staying unique enough for a
// personal library.
func newJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
