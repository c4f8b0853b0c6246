package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const podcastColumns = "id, title, feed_url, added_at, last_checked_at"

// CreatePodcast subscribes a feed. Feed URLs are unique; duplicates fail with
// ErrConstraint.
func (s *Store) CreatePodcast(ctx context.Context, podcast *Podcast) error {
	if podcast == nil {
		return errors.New("nil podcast")
	}
	if strings.TrimSpace(podcast.ID) == "" {
		return errors.New("podcast id must not be empty")
	}
	if strings.TrimSpace(podcast.FeedURL) == "" {
		return errors.New("podcast feed url must not be empty")
	}
	if podcast.AddedAt.IsZero() {
		podcast.AddedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO podcasts ("+podcastColumns+") VALUES (?, ?, ?, ?, ?)",
			podcast.ID, podcast.Title, podcast.FeedURL,
			formatTime(podcast.AddedAt), nullableTime(podcast.LastCheckedAt))
		if err != nil {
			if isSQLiteConstraint(err) {
				return fmt.Errorf("%w: feed %s: %w", ErrConstraint, podcast.FeedURL, err)
			}
			return fmt.Errorf("insert podcast: %w", err)
		}
		return bumpRevision(ctx, tx, RevisionPodcasts)
	})
}

// GetPodcast fetches one subscription by id.
func (s *Store) GetPodcast(ctx context.Context, id string) (*Podcast, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+podcastColumns+" FROM podcasts WHERE id = ?", id)
	podcast, err := scanPodcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: podcast %s", ErrNotFound, id)
	}
	return podcast, err
}

// ListPodcasts returns all subscriptions ordered by title.
func (s *Store) ListPodcasts(ctx context.Context) ([]*Podcast, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+podcastColumns+" FROM podcasts ORDER BY title ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []*Podcast
	for rows.Next() {
		podcast, err := scanPodcast(rows)
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, podcast)
	}
	return podcasts, rows.Err()
}

// TouchPodcast records a feed check and optionally refreshes the stored
// title.
func (s *Store) TouchPodcast(ctx context.Context, id, title string, checkedAt time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE podcasts
			SET last_checked_at = ?,
			    title = CASE WHEN ? != '' THEN ? ELSE title END
			WHERE id = ?`,
			formatTime(checkedAt), title, title, id)
		if err != nil {
			return fmt.Errorf("touch podcast %s: %w", id, err)
		}
		return bumpRevision(ctx, tx, RevisionPodcasts)
	})
}

// DeletePodcast removes a subscription and its episode rows.
func (s *Store) DeletePodcast(ctx context.Context, id string) error {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM podcasts WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete podcast %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = affected > 0
		if !deleted {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionPodcasts)
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: podcast %s", ErrNotFound, id)
	}
	return nil
}

// RecordEpisode inserts a feed item if it is new. The boolean reports whether
// the episode was previously unseen.
func (s *Store) RecordEpisode(ctx context.Context, episode *PodcastEpisode) (bool, error) {
	if episode == nil {
		return false, errors.New("nil episode")
	}
	if strings.TrimSpace(episode.ID) == "" {
		return false, errors.New("episode id must not be empty")
	}
	if strings.TrimSpace(episode.GUID) == "" {
		return false, errors.New("episode guid must not be empty")
	}

	var inserted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO podcast_episodes
				(id, podcast_id, guid, title, audio_url, published_at, media_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			episode.ID, episode.PodcastID, episode.GUID, episode.Title,
			episode.AudioURL, nullableTime(episode.PublishedAt), episode.MediaID)
		if err != nil {
			return fmt.Errorf("insert episode: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = affected > 0
		if !inserted {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionPodcasts)
	})
	return inserted, err
}

// ListEpisodes returns the recorded episodes for one podcast, newest first.
func (s *Store) ListEpisodes(ctx context.Context, podcastID string) ([]*PodcastEpisode, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, podcast_id, guid, title, audio_url, published_at, media_id
		FROM podcast_episodes
		WHERE podcast_id = ?
		ORDER BY published_at DESC, id DESC`,
		podcastID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*PodcastEpisode
	for rows.Next() {
		var (
			episode   PodcastEpisode
			published sql.NullString
		)
		if err := rows.Scan(&episode.ID, &episode.PodcastID, &episode.GUID,
			&episode.Title, &episode.AudioURL, &published, &episode.MediaID); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episode.PublishedAt, err = parseNullTime(published)
		if err != nil {
			return nil, fmt.Errorf("episode %s: published_at: %w", episode.ID, err)
		}
		episodes = append(episodes, &episode)
	}
	return episodes, rows.Err()
}

// AttachEpisodeMedia links a downloaded episode to its library entry.
func (s *Store) AttachEpisodeMedia(ctx context.Context, episodeID, mediaID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"UPDATE podcast_episodes SET media_id = ? WHERE id = ?", mediaID, episodeID)
		if err != nil {
			return fmt.Errorf("attach episode media %s: %w", episodeID, err)
		}
		return bumpRevision(ctx, tx, RevisionPodcasts)
	})
}

func scanPodcast(row rowScanner) (*Podcast, error) {
	var (
		podcast Podcast
		addedAt string
		checked sql.NullString
	)
	if err := row.Scan(&podcast.ID, &podcast.Title, &podcast.FeedURL, &addedAt, &checked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan podcast: %w", err)
	}
	var err error
	podcast.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("podcast %s: added_at: %w", podcast.ID, err)
	}
	podcast.LastCheckedAt, err = parseNullTime(checked)
	if err != nil {
		return nil, fmt.Errorf("podcast %s: last_checked_at: %w", podcast.ID, err)
	}
	return &podcast, nil
}
