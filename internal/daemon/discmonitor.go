package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"shelfd/internal/broadcast"
	"shelfd/internal/config"
	"shelfd/internal/ledger"
	"shelfd/internal/logging"
	"shelfd/internal/notify"
	"shelfd/internal/store"
)

// discMonitor listens for udev netlink events and enqueues a rip job when
// media appears in the configured optical drive. Netlink access needs no
// udev rules or root-run helper scripts.
type discMonitor struct {
	logger   *slog.Logger
	hub      *broadcast.Hub
	ledger   *ledger.Ledger
	notifier notify.Service
	device   string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newDiscMonitor(cfg *config.Config, logger *slog.Logger, hub *broadcast.Hub, l *ledger.Ledger, notifier notify.Service) *discMonitor {
	device := strings.TrimSpace(cfg.Disc.Device)
	if device == "" {
		return nil
	}
	return &discMonitor{
		logger:   logging.WithComponent(logger, "disc-monitor"),
		hub:      hub,
		ledger:   l,
		notifier: notifier,
		device:   device,
	}
}

// Start connects to the udev netlink socket. A connection failure is not
// fatal: rips can still be enqueued manually.
func (m *discMonitor) Start(ctx context.Context) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("netlink unavailable, automatic disc detection disabled",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "enqueue rip jobs manually or check netlink permissions"))
		return
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true
	go m.loop(ctx, m.quit)

	m.logger.Info("disc monitor started", logging.String("device", m.device))
}

func (m *discMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	_ = m.conn.Close()
	m.conn = nil
	m.running = false
	m.logger.Info("disc monitor stopped")
}

func (m *discMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *discMonitor) loop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, discMatcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// discMatcher matches block-device events that carry loaded optical media.
func discMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

func (m *discMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := deviceNameFromEvent(uevent)
	if devname == "" || devname != m.device {
		return
	}

	label := strings.TrimSpace(uevent.Env["ID_FS_LABEL"])
	if label == "" {
		label = "Untitled disc"
	}

	if m.ripPending(ctx) {
		m.logger.Debug("disc detected but a rip is already pending",
			logging.String("device", devname))
		return
	}

	id, err := m.ledger.Enqueue(ctx, ledger.JobSpec{
		Category: store.CategoryRip,
		Title:    label,
		Source:   devname,
	})
	if err != nil {
		m.logger.Warn("failed to enqueue rip for detected disc",
			logging.Error(err),
			logging.String("device", devname))
		return
	}

	m.hub.Publish(broadcast.Event{
		Type:  broadcast.EventDeviceDetected,
		JobID: id,
		Fields: map[string]string{
			"device": devname,
			"label":  label,
		},
	})
	if m.notifier != nil {
		_ = m.notifier.NotifyDiscDetected(ctx, label)
	}

	m.logger.Info("disc queued for ripping",
		logging.String(logging.FieldJobID, id),
		logging.String("device", devname),
		logging.String("label", label))
}

// ripPending reports whether a rip job is already queued or running, so a
// burst of udev change events enqueues the disc once.
func (m *discMonitor) ripPending(ctx context.Context) bool {
	for _, status := range []store.Status{store.StatusQueued, store.StatusRunning} {
		jobs, err := m.ledger.Jobs(ctx, store.JobFilter{Status: status, Category: store.CategoryRip, Limit: 1})
		if err != nil {
			m.logger.Warn("rip lookup failed", logging.Error(err))
			return false
		}
		if len(jobs) > 0 {
			return true
		}
	}
	return false
}

func deviceNameFromEvent(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
