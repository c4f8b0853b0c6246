package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"shelfd/internal/catalog"
	"shelfd/internal/config"
	"shelfd/internal/ledger"
	"shelfd/internal/logging"
	"shelfd/internal/notify"
	"shelfd/internal/podcasts"
	"shelfd/internal/runner"
	"shelfd/internal/store"
)

// Orchestrator owns one worker loop per job category. Each loop claims
// queued jobs, executes them against external tools, and writes the terminal
// state. One bad job never kills its loop.
type Orchestrator struct {
	cfg       *config.Config
	ledger    *ledger.Ledger
	catalog   *catalog.Catalog
	registry  *podcasts.Registry
	notifier  notify.Service
	logger    *slog.Logger
	executors map[store.Category]Executor
	sampler   *logging.ProgressSampler

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New constructs an orchestrator with the default executor per category. The
// registry and notifier may be nil.
func New(cfg *config.Config, l *ledger.Ledger, cat *catalog.Catalog, registry *podcasts.Registry, notifier notify.Service, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}

	tools := runner.New(logger, 10*time.Second)
	plans := planner{cfg: cfg}
	executors := map[store.Category]Executor{
		store.CategoryRip:            &toolExecutor{runner: tools, plan: plans.plan},
		store.CategoryVideo:          &toolExecutor{runner: tools, plan: plans.plan},
		store.CategoryPlaylist:       &toolExecutor{runner: tools, plan: plans.plan},
		store.CategoryArticle:        &toolExecutor{runner: tools, plan: plans.plan},
		store.CategoryBook:           newHTTPExecutor(cfg, ".epub"),
		store.CategoryPodcastEpisode: newHTTPExecutor(cfg, ".mp3"),
	}

	return &Orchestrator{
		cfg:       cfg,
		ledger:    l,
		catalog:   cat,
		registry:  registry,
		notifier:  notifier,
		logger:    logging.WithComponent(logger, "workers"),
		executors: executors,
		sampler:   logging.NewProgressSampler(10),
	}
}

// Start requeues orphaned claims and launches every worker loop. It fails
// when the staging volume is below the configured free-space floor.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return errors.New("orchestrator already started")
	}

	if err := checkFreeSpace(o.cfg.Paths.StagingDir, o.cfg.Paths.MinFreeGiB); err != nil {
		return err
	}
	if _, err := o.ledger.RequeueOrphaned(ctx); err != nil {
		return fmt.Errorf("requeue orphaned jobs: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.started = true

	for category := range o.executors {
		o.wg.Add(1)
		go o.runLoop(loopCtx, category)
	}
	if o.registry != nil {
		o.wg.Add(1)
		go o.runFeedChecks(loopCtx)
	}

	o.logger.Info("worker loops started", logging.Int("loops", len(o.executors)))
	return nil
}

// Stop signals every loop to exit and waits for in-flight jobs to finish. A
// loop never abandons a claimed job: the job's own execution context is
// detached from the shutdown signal.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	started := o.started
	o.mu.Unlock()
	if !started {
		return
	}
	cancel()
	o.wg.Wait()
	o.logger.Info("worker loops stopped")
}

func (o *Orchestrator) runLoop(ctx context.Context, category store.Category) {
	defer o.wg.Done()

	workerName := string(category) + "-worker"
	pollInterval := time.Duration(o.cfg.Workers.PollInterval) * time.Second
	errorRetry := time.Duration(o.cfg.Workers.ErrorRetryInterval) * time.Second
	logger := o.logger.With(logging.String(logging.FieldWorker, workerName))

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := o.ledger.ClaimNext(ctx, category, workerName)
		if err != nil {
			logger.Error("claim failed, backing off", logging.Error(err))
			if !sleepCtx(ctx, errorRetry) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, pollInterval) {
				return
			}
			continue
		}

		o.execute(ctx, logger, job)
	}
}

// execute runs one claimed job to a terminal state. Panics are contained
// here so a bad job cannot take down the loop.
func (o *Orchestrator) execute(loopCtx context.Context, logger *slog.Logger, job *store.Job) {
	// Store writes and job execution must survive shutdown: the loop context
	// stops further claims, not the job in flight.
	opCtx := context.WithoutCancel(loopCtx)
	jobCtx, cancelJob := context.WithCancel(opCtx)
	defer cancelJob()

	release := o.ledger.RegisterCanceller(job.ID, cancelJob)
	defer release()
	defer o.sampler.Reset(job.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while executing job",
				logging.String(logging.FieldJobID, job.ID),
				logging.Any("panic", r))
			o.finalizeFailure(opCtx, job, fmt.Sprintf("internal error: %v", r))
		}
	}()

	executor, ok := o.executors[job.Category]
	if !ok {
		o.finalizeFailure(opCtx, job, fmt.Sprintf("no executor for category %q", job.Category))
		return
	}

	logger.Info("executing job",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCategory, string(job.Category)))

	throttle := newProgressThrottle(time.Duration(o.cfg.Workers.ProgressInterval) * time.Second)
	report := func(percent float64, eta, throughput string) {
		if !throttle.allow(percent) {
			return
		}
		if err := o.ledger.ReportProgress(opCtx, job.ID, percent, eta, throughput); err != nil {
			logger.Warn("progress report failed", logging.Error(err))
			return
		}
		if o.sampler.ShouldLog(job.ID, percent) {
			logger.Info("job progress",
				logging.String(logging.FieldJobID, job.ID),
				logging.Float64(logging.FieldProgress, percent))
		}
	}

	output, err := executor.Execute(jobCtx, job, report)
	switch {
	case errors.Is(err, ErrCancelled):
		// The ledger finalized the cancelled state before signalling us.
		logger.Info("job cancelled", logging.String(logging.FieldJobID, job.ID))
	case err != nil:
		o.finalizeFailure(opCtx, job, err.Error())
	default:
		o.finalizeSuccess(opCtx, logger, job, output)
	}
}

func (o *Orchestrator) finalizeSuccess(ctx context.Context, logger *slog.Logger, job *store.Job, stagedOutput string) {
	kind := catalog.KindForCategory(job.Category)
	finalPath, err := moveToLibrary(stagedOutput, o.cfg.LibrarySubdir(librarySubdirFor(kind)))
	if err != nil {
		o.finalizeFailure(ctx, job, fmt.Sprintf("organize output: %v", err))
		return
	}

	if err := o.ledger.Complete(ctx, job.ID, finalPath); err != nil {
		if transition, ok := ledger.IsInvalidTransition(err); ok && transition.From == store.StatusCancelled {
			// Cancel won the race after the tool finished. The cancelled
			// state stands.
			logger.Info("completion superseded by cancel", logging.String(logging.FieldJobID, job.ID))
			return
		}
		logger.Error("complete failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
		return
	}

	record, err := o.catalog.AddFromJob(ctx, job, finalPath)
	if err != nil {
		logger.Error("library record failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	} else if job.Category == store.CategoryPodcastEpisode && o.registry != nil {
		if episodeID := job.Param("episode_id", ""); episodeID != "" {
			if err := o.registry.AttachDownload(ctx, episodeID, record.ID); err != nil {
				logger.Warn("episode link failed", logging.Error(err))
			}
		}
	}

	if o.notifier != nil {
		_ = o.notifier.NotifyJobDone(ctx, string(job.Category), job.Title, finalPath)
	}
}

func (o *Orchestrator) finalizeFailure(ctx context.Context, job *store.Job, message string) {
	if err := o.ledger.Fail(ctx, job.ID, message); err != nil {
		if transition, ok := ledger.IsInvalidTransition(err); ok && transition.From == store.StatusCancelled {
			return
		}
		o.logger.Error("fail transition failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
		return
	}
	o.logger.Warn("job failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldError, message))
	if o.notifier != nil {
		_ = o.notifier.NotifyJobFailed(ctx, string(job.Category), job.Title, message)
	}
}

// runFeedChecks sweeps podcast feeds on a fixed schedule, with one sweep at
// startup.
func (o *Orchestrator) runFeedChecks(ctx context.Context) {
	defer o.wg.Done()

	interval := time.Duration(o.cfg.Podcasts.CheckIntervalHours) * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep := func() {
		if count, err := o.registry.CheckAll(ctx); err != nil {
			if ctx.Err() == nil {
				o.logger.Warn("feed sweep failed", logging.Error(err))
			}
		} else if count > 0 {
			o.logger.Info("feed sweep queued episodes", logging.Int("count", count))
		}
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func librarySubdirFor(kind store.MediaKind) string {
	switch kind {
	case store.MediaAudio:
		return "podcasts"
	case store.MediaArticle:
		return "articles"
	case store.MediaBook:
		return "books"
	default:
		return "videos"
	}
}

// sleepCtx waits for the duration unless the context ends first. Returns
// false when the context ended.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
