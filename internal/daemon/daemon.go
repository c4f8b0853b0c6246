package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shelfd/internal/broadcast"
	"shelfd/internal/catalog"
	"shelfd/internal/config"
	"shelfd/internal/ledger"
	"shelfd/internal/logging"
	"shelfd/internal/notify"
	"shelfd/internal/podcasts"
	"shelfd/internal/store"
	"shelfd/internal/workers"
)

const eventBuffer = 64

// Daemon owns the full service graph and enforces single-instance execution
// through a lock file under the data directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	hub      *broadcast.Hub
	ledger   *ledger.Ledger
	catalog  *catalog.Catalog
	registry *podcasts.Registry
	notifier notify.Service
	workers  *workers.Orchestrator
	monitor  *discMonitor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New opens the state store and wires every service. The caller owns the
// returned daemon and must Close it.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires a configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	hub := broadcast.NewHub(eventBuffer, logger)
	l := ledger.New(s, hub, logger)
	cat := catalog.New(s, hub, logger)
	notifier := notify.NewService(cfg)
	registry := podcasts.New(s, l, notifier, logger)
	orchestrator := workers.New(cfg, l, cat, registry, notifier, logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "shelfd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    s,
		hub:      hub,
		ledger:   l,
		catalog:  cat,
		registry: registry,
		notifier: notifier,
		workers:  orchestrator,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.monitor = newDiscMonitor(cfg, logger, hub, l, notifier)
	return d, nil
}

// Start acquires the instance lock and launches the worker loops, the disc
// monitor, and the session sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another shelfd instance holds %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workers.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.monitor.Start(runCtx)

	d.cancel = cancel
	d.done = make(chan struct{})
	go d.sweepSessions(runCtx, d.done)

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String(logging.FieldPath, d.cfg.DatabasePath()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop finishes in-flight jobs, stops the monitors, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.monitor.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workers.Stop()
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release instance lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases the store and the event hub.
func (d *Daemon) Close() error {
	d.Stop()
	d.hub.Close()
	return d.store.Close()
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Ledger exposes the job ledger for in-process consumers.
func (d *Daemon) Ledger() *ledger.Ledger { return d.ledger }

// Events exposes the broadcast hub for in-process subscribers.
func (d *Daemon) Events() *broadcast.Hub { return d.hub }

// sweepSessions purges expired sessions once an hour.
func (d *Daemon) sweepSessions(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := d.store.PurgeExpiredSessions(ctx)
			if err != nil {
				if ctx.Err() == nil {
					d.logger.Warn("session purge failed", logging.Error(err))
				}
				continue
			}
			if purged > 0 {
				d.logger.Debug("purged expired sessions", logging.Int64("count", purged))
			}
		}
	}
}
