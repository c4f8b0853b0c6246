package daemon

import (
	"context"
	"testing"

	"shelfd/internal/ledger"
	"shelfd/internal/logging"
	"shelfd/internal/store"
	"shelfd/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running after Start")
	}

	if _, err := d.Ledger().Enqueue(ctx, ledger.JobSpec{
		Category: store.CategoryVideo,
		Source:   "https://example.com/v",
	}); err != nil {
		t.Fatalf("enqueue through running daemon: %v", err)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped after Stop")
	}
}

func TestDaemonStartIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start first: %v", err)
	}

	second, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance must not acquire the lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("lock should be free after the first instance stops: %v", err)
	}
	second.Stop()
}

func TestDaemonDoubleStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon must fail")
	}
	d.Stop()
}
