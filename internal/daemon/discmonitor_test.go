package daemon

import (
	"context"
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"shelfd/internal/config"
	"shelfd/internal/ledger"
	"shelfd/internal/logging"
	"shelfd/internal/store"
	"shelfd/internal/testsupport"
)

func monitorConfig(device string) *config.Config {
	cfg := &config.Config{}
	cfg.Disc.Device = device
	return cfg
}

func TestNewDiscMonitor(t *testing.T) {
	t.Run("no configured device returns nil", func(t *testing.T) {
		if m := newDiscMonitor(monitorConfig(""), logging.NewNop(), nil, nil, nil); m != nil {
			t.Error("expected nil monitor without a configured device")
		}
	})

	t.Run("configured device creates monitor", func(t *testing.T) {
		m := newDiscMonitor(monitorConfig("/dev/sr0"), logging.NewNop(), nil, nil, nil)
		if m == nil {
			t.Fatal("expected a monitor")
		}
		if m.device != "/dev/sr0" {
			t.Errorf("unexpected device %s", m.device)
		}
	})
}

func TestDiscMonitorNilSafety(t *testing.T) {
	var m *discMonitor
	m.Start(context.Background())
	m.Stop()
	if m.Running() {
		t.Error("nil monitor never runs")
	}
}

func TestDiscMonitorStopWithoutStart(t *testing.T) {
	m := newDiscMonitor(monitorConfig("/dev/sr0"), logging.NewNop(), nil, nil, nil)
	m.Stop()
	m.Stop()
	if m.Running() {
		t.Error("unstarted monitor must not report running")
	}
}

func TestDiscMatcher(t *testing.T) {
	matcher := discMatcher()
	if matcher == nil {
		t.Fatal("expected a matcher")
	}

	loaded := netlink.UEvent{
		Action: netlink.CHANGE,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	}
	if !matcher.Evaluate(loaded) {
		t.Error("loaded optical media should match")
	}

	plainDisk := netlink.UEvent{
		Action: netlink.ADD,
		Env: map[string]string{
			"SUBSYSTEM": "block",
		},
	}
	if matcher.Evaluate(plainDisk) {
		t.Error("non-optical block event must not match")
	}
}

func TestDiscMonitorHandleEvent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Disc.Device = "/dev/sr0"
	s := testsupport.MustOpenStore(t, cfg)
	l := ledger.New(s, nil, nil)
	m := newDiscMonitor(cfg, logging.NewNop(), nil, l, nil)
	ctx := context.Background()

	insert := netlink.UEvent{
		Action: netlink.CHANGE,
		Env: map[string]string{
			"DEVNAME":     "/dev/sr0",
			"ID_FS_LABEL": "MOVIE_DISC",
		},
	}

	m.handleEvent(ctx, insert)
	jobs, err := l.Jobs(ctx, store.JobFilter{Category: store.CategoryRip})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one rip job, got %d", len(jobs))
	}
	if jobs[0].Title != "MOVIE_DISC" || jobs[0].Source != "/dev/sr0" {
		t.Fatalf("unexpected rip job %+v", jobs[0])
	}

	// udev fires change events in bursts. The pending rip absorbs them.
	m.handleEvent(ctx, insert)
	jobs, err = l.Jobs(ctx, store.JobFilter{Category: store.CategoryRip})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("burst should not enqueue twice, got %d jobs", len(jobs))
	}

	// Events for other drives are ignored.
	m.handleEvent(ctx, netlink.UEvent{
		Action: netlink.CHANGE,
		Env:    map[string]string{"DEVNAME": "/dev/sr1"},
	})
	jobs, _ = l.Jobs(ctx, store.JobFilter{Category: store.CategoryRip})
	if len(jobs) != 1 {
		t.Fatalf("foreign device must be ignored, got %d jobs", len(jobs))
	}
}

func TestDeviceNameFromEvent(t *testing.T) {
	withName := netlink.UEvent{Env: map[string]string{"DEVNAME": "/dev/sr0"}}
	if got := deviceNameFromEvent(withName); got != "/dev/sr0" {
		t.Errorf("DEVNAME should win, got %s", got)
	}

	withPath := netlink.UEvent{Env: map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/block/sr1"}}
	if got := deviceNameFromEvent(withPath); got != "/dev/sr1" {
		t.Errorf("DEVPATH fallback broken, got %s", got)
	}

	if got := deviceNameFromEvent(netlink.UEvent{Env: map[string]string{}}); got != "" {
		t.Errorf("empty event should yield empty name, got %s", got)
	}
}
