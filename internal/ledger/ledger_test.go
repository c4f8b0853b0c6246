package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"shelfd/internal/broadcast"
	"shelfd/internal/ledger"
	"shelfd/internal/store"
)

func newLedger(t *testing.T) (*ledger.Ledger, *store.Store) {
	t.Helper()
	s, err := store.OpenPath(filepath.Join(t.TempDir(), "shelfd.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return ledger.New(s, nil, nil), s
}

func ripSpec(source string) ledger.JobSpec {
	return ledger.JobSpec{
		Category: store.CategoryRip,
		Title:    "Disc",
		Source:   source,
		Params:   map[string]string{"title_index": "1"},
	}
}

func TestEnqueueValidatesSpec(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	if _, err := l.Enqueue(ctx, ledger.JobSpec{Category: store.CategoryRip}); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("empty source should fail validation, got %v", err)
	}
	if _, err := l.Enqueue(ctx, ledger.JobSpec{Category: "karaoke", Source: "/dev/sr0"}); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("unknown category should fail validation, got %v", err)
	}
}

func TestHappyPath(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	id, err := l.Enqueue(ctx, ripSpec("/vol/X"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	job, err := l.ClaimNext(ctx, store.CategoryRip, "rip-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job == nil || job.ID != id {
		t.Fatalf("expected to claim %s, got %+v", id, job)
	}
	if job.Status != store.StatusRunning {
		t.Fatalf("claimed job should be running, got %s", job.Status)
	}

	for _, progress := range []float64{10, 55, 100} {
		if err := l.ReportProgress(ctx, id, progress, "5m", "30 fps"); err != nil {
			t.Fatalf("report progress %v: %v", progress, err)
		}
	}
	if err := l.Complete(ctx, id, "/lib/X.mkv"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := l.Job(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusDone || got.Progress != 100 {
		t.Fatalf("expected done at 100%%, got %s at %v", got.Status, got.Progress)
	}
	if got.OutputPath != "/lib/X.mkv" {
		t.Fatalf("output locator lost: %q", got.OutputPath)
	}
}

func TestConcurrentClaimsAreExclusive(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	const jobs = 6
	for i := 0; i < jobs; i++ {
		if _, err := l.Enqueue(ctx, ripSpec("/vol/disc")); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	const workers = 8
	claims := make(chan string, jobs*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				job, err := l.ClaimNext(ctx, store.CategoryRip, "rip")
				if err != nil {
					t.Errorf("claim: %v", err)
					return
				}
				if job == nil {
					return
				}
				claims <- job.ID
			}
		}(i)
	}
	wg.Wait()
	close(claims)

	seen := make(map[string]int)
	for id := range claims {
		seen[id]++
	}
	if len(seen) != jobs {
		t.Fatalf("expected %d distinct claims, got %d", jobs, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("job %s claimed %d times", id, count)
		}
	}
}

func TestIllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	id, err := l.Enqueue(ctx, ripSpec("/vol/X"))
	if err != nil {
		t.Fatal(err)
	}

	err = l.Complete(ctx, id, "/out")
	transition, ok := ledger.IsInvalidTransition(err)
	if !ok {
		t.Fatalf("complete on queued job should be invalid, got %v", err)
	}
	if transition.From != store.StatusQueued || transition.To != store.StatusDone {
		t.Fatalf("unexpected transition detail: %+v", transition)
	}

	if err := l.Fail(ctx, id, "nope"); err == nil {
		t.Fatal("fail on queued job should be invalid")
	}

	got, err := l.Job(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusQueued {
		t.Fatalf("state changed by rejected transitions: %s", got.Status)
	}
}

func TestRetryCreatesNewIdentity(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	id, err := l.Enqueue(ctx, ripSpec("/vol/X"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.ClaimNext(ctx, store.CategoryRip, "rip-1"); err != nil {
		t.Fatal(err)
	}
	if err := l.Fail(ctx, id, "drive error"); err != nil {
		t.Fatal(err)
	}

	retryID, err := l.Retry(ctx, id)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retryID == id {
		t.Fatal("retry must mint a new id")
	}

	original, err := l.Job(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if original.Status != store.StatusFailed || original.ErrorMessage != "drive error" {
		t.Fatalf("original row mutated by retry: %+v", original)
	}

	clone, err := l.Job(ctx, retryID)
	if err != nil {
		t.Fatal(err)
	}
	if clone.Status != store.StatusQueued {
		t.Fatalf("retried job should be queued, got %s", clone.Status)
	}
	if clone.Source != original.Source || clone.Param("title_index", "") != "1" {
		t.Fatalf("retry lost parameters: %+v", clone)
	}

	// Retry is only valid from failed or cancelled.
	if _, err := l.Retry(ctx, retryID); err == nil {
		t.Fatal("retry on a queued job should be invalid")
	}
}

func TestCancelWhileQueued(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	id, err := l.Enqueue(ctx, ripSpec("/vol/X"))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Cancel(ctx, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := l.Job(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}

	job, err := l.ClaimNext(ctx, store.CategoryRip, "rip-1")
	if err != nil {
		t.Fatal(err)
	}
	if job != nil {
		t.Fatalf("cancelled job must never be claimed, got %+v", job)
	}
}

func TestCancelSignalsRunningJob(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	id, err := l.Enqueue(ctx, ripSpec("/vol/X"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.ClaimNext(ctx, store.CategoryRip, "rip-1"); err != nil {
		t.Fatal(err)
	}

	signalled := false
	release := l.RegisterCanceller(id, func() { signalled = true })
	defer release()

	if err := l.Cancel(ctx, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !signalled {
		t.Fatal("cancel must signal the registered runner")
	}

	// The worker's complete now loses the race: exactly one terminal state.
	err = l.Complete(ctx, id, "/out")
	if _, ok := ledger.IsInvalidTransition(err); !ok {
		t.Fatalf("complete after cancel should be invalid, got %v", err)
	}
	got, err := l.Job(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusCancelled {
		t.Fatalf("expected cancelled to stick, got %s", got.Status)
	}
}

func TestProgressAfterCancelIsBenign(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	id, err := l.Enqueue(ctx, ripSpec("/vol/X"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.ClaimNext(ctx, store.CategoryRip, "rip-1"); err != nil {
		t.Fatal(err)
	}
	if err := l.ReportProgress(ctx, id, 30, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := l.Cancel(ctx, id); err != nil {
		t.Fatal(err)
	}

	if err := l.ReportProgress(ctx, id, 60, "", ""); err != nil {
		t.Fatalf("progress after cancel must be ignored, got %v", err)
	}
	got, err := l.Job(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 30 {
		t.Fatalf("progress recorded after cancel: %v", got.Progress)
	}
}

func TestLedgerPublishesEvents(t *testing.T) {
	s, err := store.OpenPath(filepath.Join(t.TempDir(), "shelfd.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	hub := broadcast.NewHub(16, nil)
	defer hub.Close()
	sub := hub.Subscribe()
	defer sub.Cancel()

	l := ledger.New(s, hub, nil)
	ctx := context.Background()

	id, err := l.Enqueue(ctx, ripSpec("/vol/X"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.ClaimNext(ctx, store.CategoryRip, "rip-1"); err != nil {
		t.Fatal(err)
	}
	if err := l.Complete(ctx, id, "/out"); err != nil {
		t.Fatal(err)
	}

	created := <-sub.C
	if created.Type != broadcast.EventJobCreated || created.JobID != id {
		t.Fatalf("expected job_created for %s, got %+v", id, created)
	}
	claimed := <-sub.C
	if claimed.Type != broadcast.EventJobUpdated || claimed.Status != string(store.StatusRunning) {
		t.Fatalf("expected running update, got %+v", claimed)
	}
	finished := <-sub.C
	if finished.Status != string(store.StatusDone) {
		t.Fatalf("expected terminal update, got %+v", finished)
	}
}
