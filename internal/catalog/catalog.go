// Package catalog manages the media library: records produced by completed
// jobs, direct additions, and collection membership.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shelfd/internal/broadcast"
	"shelfd/internal/logging"
	"shelfd/internal/store"
)

// Catalog writes library entries to the store and announces changes on the
// hub.
type Catalog struct {
	store  *store.Store
	hub    *broadcast.Hub
	logger *slog.Logger
}

// New constructs a catalog. The hub may be nil.
func New(s *store.Store, hub *broadcast.Hub, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Catalog{
		store:  s,
		hub:    hub,
		logger: logging.WithComponent(logger, "catalog"),
	}
}

// AddFromJob records the output of a completed job as a library entry. The
// file is stat'ed for its size; a missing file is an error since the job
// claimed to have produced it.
func (c *Catalog) AddFromJob(ctx context.Context, job *store.Job, outputPath string) (*store.MediaRecord, error) {
	if job == nil {
		return nil, fmt.Errorf("nil job")
	}
	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat job output: %w", err)
	}

	title := strings.TrimSpace(job.Title)
	if title == "" {
		title = DisplayTitle(strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath)))
	}

	record := &store.MediaRecord{
		ID:        newID(),
		Kind:      KindForCategory(job.Category),
		Title:     title,
		Path:      outputPath,
		SizeBytes: info.Size(),
		Source:    job.Source,
	}
	if err := c.store.CreateMedia(ctx, record); err != nil {
		return nil, err
	}

	c.logger.Info("library entry added",
		logging.String("media_id", record.ID),
		logging.String(logging.FieldJobID, job.ID),
		logging.String("size", humanize.IBytes(uint64(info.Size()))))
	c.publishLibraryUpdated(record)
	return record, nil
}

// Add records a library entry that did not come from a job, such as a direct
// upload.
func (c *Catalog) Add(ctx context.Context, kind store.MediaKind, title, path, source string) (*store.MediaRecord, error) {
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	record := &store.MediaRecord{
		ID:        newID(),
		Kind:      kind,
		Title:     strings.TrimSpace(title),
		Path:      path,
		SizeBytes: size,
		Source:    source,
	}
	if err := c.store.CreateMedia(ctx, record); err != nil {
		return nil, err
	}
	c.publishLibraryUpdated(record)
	return record, nil
}

// Get fetches one library entry.
func (c *Catalog) Get(ctx context.Context, id string) (*store.MediaRecord, error) {
	return c.store.GetMedia(ctx, id)
}

// List returns library entries, optionally filtered by kind.
func (c *Catalog) List(ctx context.Context, kind store.MediaKind) ([]*store.MediaRecord, error) {
	return c.store.ListMedia(ctx, kind)
}

// Rename is the explicit post-creation update path for titles.
func (c *Catalog) Rename(ctx context.Context, id, title string) error {
	if err := c.store.UpdateMediaTitle(ctx, id, strings.TrimSpace(title)); err != nil {
		return err
	}
	c.publishLibraryUpdated(nil)
	return nil
}

// Remove deletes the library record. The file on disk is left alone.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	if err := c.store.DeleteMedia(ctx, id); err != nil {
		return err
	}
	c.publishLibraryUpdated(nil)
	return nil
}

func (c *Catalog) publishLibraryUpdated(record *store.MediaRecord) {
	if c.hub == nil {
		return
	}
	event := broadcast.Event{Type: broadcast.EventLibraryUpdated}
	if record != nil {
		event.Fields = map[string]string{
			"media_id": record.ID,
			"kind":     string(record.Kind),
			"title":    record.Title,
		}
	}
	c.hub.Publish(event)
}

// KindForCategory maps a job category to the library kind its output lands
// in.
func KindForCategory(category store.Category) store.MediaKind {
	switch category {
	case store.CategoryArticle:
		return store.MediaArticle
	case store.CategoryBook:
		return store.MediaBook
	case store.CategoryPodcastEpisode:
		return store.MediaAudio
	default:
		return store.MediaVideo
	}
}

var titleCaser = cases.Title(language.English)

// DisplayTitle cleans a filename-ish string into something presentable:
// separators become spaces and words are title-cased.
func DisplayTitle(raw string) string {
	cleaned := strings.NewReplacer("_", " ", ".", " ", "-", " ").Replace(raw)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return ""
	}
	return titleCaser.String(cleaned)
}

// FormatSize renders a byte count for human consumption.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
