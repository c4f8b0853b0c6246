package workers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"shelfd/internal/store"
	"shelfd/internal/testsupport"
)

func TestHTTPExecutorDownloadsWithProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	payload := bytes.Repeat([]byte("x"), 300*1024)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	executor := newHTTPExecutor(cfg, ".mp3")
	job := &store.Job{ID: "ep1", Category: store.CategoryPodcastEpisode, Source: server.URL + "/episode.mp3"}

	var (
		mu       sync.Mutex
		percents []float64
	)
	output, err := executor.Execute(context.Background(), job, func(percent float64, _, _ string) {
		mu.Lock()
		percents = append(percents, percent)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if len(data) != len(payload) {
		t.Fatalf("expected %d bytes, got %d", len(payload), len(data))
	}
	if len(percents) == 0 {
		t.Fatal("expected progress reports")
	}
	last := percents[len(percents)-1]
	if last < 99.9 {
		t.Fatalf("final progress should reach 100, got %v", last)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress regressed: %v", percents)
		}
	}
}

func TestHTTPExecutorUsesURLExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("book"))
	}))
	defer server.Close()

	executor := newHTTPExecutor(cfg, ".epub")

	job := &store.Job{ID: "b1", Category: store.CategoryBook, Source: server.URL + "/novel.pdf"}
	output, err := executor.Execute(context.Background(), job, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := output[len(output)-4:]; got != ".pdf" {
		t.Fatalf("expected url extension, got %q", output)
	}

	job = &store.Job{ID: "b2", Category: store.CategoryBook, Source: server.URL + "/download"}
	output, err = executor.Execute(context.Background(), job, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := output[len(output)-5:]; got != ".epub" {
		t.Fatalf("expected fallback extension, got %q", output)
	}
}

func TestHTTPExecutorRejectsBadStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	executor := newHTTPExecutor(cfg, ".mp3")
	job := &store.Job{ID: "e1", Category: store.CategoryPodcastEpisode, Source: server.URL}
	if _, err := executor.Execute(context.Background(), job, nil); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestHTTPExecutorCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	executor := newHTTPExecutor(cfg, ".mp3")
	job := &store.Job{ID: "e2", Category: store.CategoryPodcastEpisode, Source: server.URL}

	done := make(chan error, 1)
	go func() {
		_, err := executor.Execute(ctx, job, nil)
		done <- err
	}()
	cancel()

	if err := <-done; err != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
