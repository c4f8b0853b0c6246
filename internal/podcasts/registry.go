// Package podcasts tracks feed subscriptions and turns newly published
// episodes into download jobs.
package podcasts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"shelfd/internal/ledger"
	"shelfd/internal/logging"
	"shelfd/internal/notify"
	"shelfd/internal/store"
)

// Registry manages podcast subscriptions.
type Registry struct {
	store    *store.Store
	ledger   *ledger.Ledger
	notifier notify.Service
	parser   *gofeed.Parser
	logger   *slog.Logger
}

// New constructs a registry. The notifier may be nil.
func New(s *store.Store, l *ledger.Ledger, notifier notify.Service, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		store:    s,
		ledger:   l,
		notifier: notifier,
		parser:   gofeed.NewParser(),
		logger:   logging.WithComponent(logger, "podcasts"),
	}
}

// Subscribe fetches and validates the feed, stores the subscription, and
// baselines every currently published episode as seen. Only episodes
// published after subscription are downloaded.
func (r *Registry) Subscribe(ctx context.Context, feedURL string) (*store.Podcast, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, fmt.Errorf("feed url must not be empty")
	}

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}

	now := time.Now().UTC()
	podcast := &store.Podcast{
		ID:            newID(),
		Title:         strings.TrimSpace(feed.Title),
		FeedURL:       feedURL,
		AddedAt:       now,
		LastCheckedAt: &now,
	}
	if err := r.store.CreatePodcast(ctx, podcast); err != nil {
		return nil, err
	}

	for _, item := range feed.Items {
		episode := episodeFromItem(podcast.ID, item)
		if episode == nil {
			continue
		}
		if _, err := r.store.RecordEpisode(ctx, episode); err != nil {
			return nil, err
		}
	}

	r.logger.Info("podcast subscribed",
		logging.String(logging.FieldFeed, feedURL),
		logging.Int("episodes", len(feed.Items)))
	return podcast, nil
}

// Unsubscribe removes a subscription and its episode history.
func (r *Registry) Unsubscribe(ctx context.Context, id string) error {
	return r.store.DeletePodcast(ctx, id)
}

// List returns all subscriptions.
func (r *Registry) List(ctx context.Context) ([]*store.Podcast, error) {
	return r.store.ListPodcasts(ctx)
}

// CheckAll fetches every subscribed feed and enqueues a download job for
// each unseen episode. A broken feed is logged and skipped; it never aborts
// the sweep. Returns how many jobs were enqueued.
func (r *Registry) CheckAll(ctx context.Context) (int, error) {
	podcasts, err := r.store.ListPodcasts(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, podcast := range podcasts {
		enqueued, err := r.check(ctx, podcast)
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			r.logger.Warn("feed check failed",
				logging.String(logging.FieldFeed, podcast.FeedURL),
				logging.Error(err))
			continue
		}
		total += enqueued
	}
	return total, nil
}

func (r *Registry) check(ctx context.Context, podcast *store.Podcast) (int, error) {
	feed, err := r.parser.ParseURLWithContext(podcast.FeedURL, ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}
	if err := r.store.TouchPodcast(ctx, podcast.ID, strings.TrimSpace(feed.Title), time.Now().UTC()); err != nil {
		return 0, err
	}

	title := strings.TrimSpace(feed.Title)
	if title == "" {
		title = podcast.Title
	}

	enqueued := 0
	for _, item := range feed.Items {
		episode := episodeFromItem(podcast.ID, item)
		if episode == nil {
			continue
		}
		isNew, err := r.store.RecordEpisode(ctx, episode)
		if err != nil {
			return enqueued, err
		}
		if !isNew {
			continue
		}

		jobTitle := strings.TrimSpace(item.Title)
		if title != "" {
			jobTitle = title + " - " + jobTitle
		}
		if _, err := r.ledger.Enqueue(ctx, ledger.JobSpec{
			Category: store.CategoryPodcastEpisode,
			Title:    jobTitle,
			Source:   episode.AudioURL,
			Params: map[string]string{
				"podcast_id": podcast.ID,
				"episode_id": episode.ID,
				"guid":       episode.GUID,
			},
		}); err != nil {
			return enqueued, err
		}
		enqueued++
	}

	if enqueued > 0 {
		r.logger.Info("new episodes queued",
			logging.String(logging.FieldFeed, podcast.FeedURL),
			logging.Int("count", enqueued))
		if r.notifier != nil {
			_ = r.notifier.NotifyNewEpisodes(ctx, title, enqueued)
		}
	}
	return enqueued, nil
}

// AttachDownload links a finished episode download to its library entry.
func (r *Registry) AttachDownload(ctx context.Context, episodeID, mediaID string) error {
	return r.store.AttachEpisodeMedia(ctx, episodeID, mediaID)
}

func episodeFromItem(podcastID string, item *gofeed.Item) *store.PodcastEpisode {
	if item == nil {
		return nil
	}
	var audioURL string
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && enclosure.URL != "" {
			audioURL = enclosure.URL
			break
		}
	}
	if audioURL == "" {
		// Items without an enclosure have nothing to download.
		return nil
	}

	guid := strings.TrimSpace(item.GUID)
	if guid == "" {
		guid = audioURL
	}

	episode := &store.PodcastEpisode{
		ID:        newID(),
		PodcastID: podcastID,
		GUID:      guid,
		Title:     strings.TrimSpace(item.Title),
		AudioURL:  audioURL,
	}
	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		episode.PublishedAt = &published
	}
	return episode
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
