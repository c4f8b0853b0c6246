package main

import (
	"strings"
	"testing"

	"shelfd/internal/store"
)

func TestPaintStatus(t *testing.T) {
	if got := paintStatus(store.StatusFailed, false); got != "failed" {
		t.Errorf("plain output should be unstyled, got %q", got)
	}
	colored := paintStatus(store.StatusFailed, true)
	if !strings.Contains(colored, "failed") || !strings.Contains(colored, ansiRed) {
		t.Errorf("colorized output should wrap the status, got %q", colored)
	}
}

func TestFormatProgress(t *testing.T) {
	queued := &store.Job{Status: store.StatusQueued}
	if got := formatProgress(queued); got != "-" {
		t.Errorf("queued jobs have no progress, got %q", got)
	}
	running := &store.Job{Status: store.StatusRunning, Progress: 42.4}
	if got := formatProgress(running); got != "42%" {
		t.Errorf("unexpected running progress %q", got)
	}
	done := &store.Job{Status: store.StatusDone, Progress: 97}
	if got := formatProgress(done); got != "100%" {
		t.Errorf("done jobs always show 100%%, got %q", got)
	}
}

func TestJobTitle(t *testing.T) {
	titled := &store.Job{Title: "A Show", Source: "https://example.com"}
	if got := jobTitle(titled); got != "A Show" {
		t.Errorf("unexpected title %q", got)
	}
	untitled := &store.Job{Source: "https://example.com"}
	if got := jobTitle(untitled); got != "https://example.com" {
		t.Errorf("source should stand in for a missing title, got %q", got)
	}
}
