// Package notify pushes job and library notifications to an ntfy topic. With
// no topic configured it degrades to a noop.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shelfd/internal/config"
)

const userAgent = "shelfd/0.1.0"

// Service is the notification surface exposed to workers and the daemon.
type Service interface {
	NotifyJobDone(ctx context.Context, category, title, outputPath string) error
	NotifyJobFailed(ctx context.Context, category, title, message string) error
	NotifyDiscDetected(ctx context.Context, label string) error
	NotifyNewEpisodes(ctx context.Context, podcastTitle string, count int) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service when a topic is configured,
// otherwise a noop implementation.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobDone(ctx context.Context, category, title, outputPath string) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Finished %s: %s", category, title)
	if outputPath = strings.TrimSpace(outputPath); outputPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputPath)
	}
	return n.send(ctx, payload{
		title:   "shelfd - Job Complete",
		message: message,
		tags:    []string{"shelfd", category, "done"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, category, title, message string) error {
	title = strings.TrimSpace(title)
	if message = strings.TrimSpace(message); message == "" {
		message = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "shelfd - Job Failed",
		message:  fmt.Sprintf("Failed %s: %s\n%s", category, title, message),
		tags:     []string{"shelfd", category, "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyDiscDetected(ctx context.Context, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "unknown disc"
	}
	return n.send(ctx, payload{
		title:   "shelfd - Disc Detected",
		message: fmt.Sprintf("Disc detected: %s", label),
		tags:    []string{"shelfd", "disc"},
	})
}

func (n *ntfyService) NotifyNewEpisodes(ctx context.Context, podcastTitle string, count int) error {
	podcastTitle = strings.TrimSpace(podcastTitle)
	return n.send(ctx, payload{
		title:   "shelfd - New Episodes",
		message: fmt.Sprintf("Queued %d new episode(s) of %s", count, podcastTitle),
		tags:    []string{"shelfd", "podcast"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "shelfd - Test",
		message:  "Notification system test",
		tags:     []string{"shelfd", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobDone(context.Context, string, string, string) error   { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string, string) error { return nil }
func (noopService) NotifyDiscDetected(context.Context, string) error              { return nil }
func (noopService) NotifyNewEpisodes(context.Context, string, int) error          { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
