package broadcast_test

import (
	"testing"
	"time"

	"shelfd/internal/broadcast"
)

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := broadcast.NewHub(4, nil)
	defer hub.Close()

	hub.Publish(broadcast.Event{Type: broadcast.EventJobCreated, JobID: "a"})
	if hub.SubscriberCount() != 0 {
		t.Fatal("no subscribers expected")
	}
	if hub.Dropped() != 0 {
		t.Fatal("publish without subscribers must not count as dropped")
	}
}

func TestSubscriberReceivesEventsInOrder(t *testing.T) {
	hub := broadcast.NewHub(8, nil)
	defer hub.Close()

	sub := hub.Subscribe()
	defer sub.Cancel()

	hub.Publish(broadcast.Event{Type: broadcast.EventJobCreated, JobID: "a"})
	hub.Publish(broadcast.Event{Type: broadcast.EventJobUpdated, JobID: "a", Progress: 50})

	first := <-sub.C
	second := <-sub.C
	if first.Type != broadcast.EventJobCreated || second.Type != broadcast.EventJobUpdated {
		t.Fatalf("unexpected order: %s then %s", first.Type, second.Type)
	}
	if second.Sequence <= first.Sequence {
		t.Fatalf("sequence must increase: %d then %d", first.Sequence, second.Sequence)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("publish must stamp a timestamp")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := broadcast.NewHub(1, nil)
	defer hub.Close()

	sub := hub.Subscribe()
	defer sub.Cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Publish(broadcast.Event{Type: broadcast.EventJobUpdated, JobID: "a"})
		hub.Publish(broadcast.Event{Type: broadcast.EventJobUpdated, JobID: "b"})
		hub.Publish(broadcast.Event{Type: broadcast.EventJobUpdated, JobID: "c"})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	if hub.Dropped() != 2 {
		t.Fatalf("expected 2 dropped events, got %d", hub.Dropped())
	}
	event := <-sub.C
	if event.JobID != "a" {
		t.Fatalf("subscriber should hold the first event, got %q", event.JobID)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	hub := broadcast.NewHub(4, nil)
	defer hub.Close()

	sub := hub.Subscribe()
	sub.Cancel()
	sub.Cancel() // idempotent

	if _, open := <-sub.C; open {
		t.Fatal("cancelled subscription channel should be closed")
	}
	if hub.SubscriberCount() != 0 {
		t.Fatal("cancelled subscriber still registered")
	}

	// Publishing after cancel must not panic.
	hub.Publish(broadcast.Event{Type: broadcast.EventLibraryUpdated})
}

func TestCloseDetachesSubscribers(t *testing.T) {
	hub := broadcast.NewHub(4, nil)
	sub := hub.Subscribe()

	hub.Close()
	if _, open := <-sub.C; open {
		t.Fatal("close should close subscriber channels")
	}

	// Publish and Subscribe after close are safe no-ops.
	hub.Publish(broadcast.Event{Type: broadcast.EventJobUpdated})
	late := hub.Subscribe()
	if _, open := <-late.C; open {
		t.Fatal("subscription after close should be closed immediately")
	}
}
