package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusDone,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transitions leave the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Category names the kind of work a job performs. Each category is served by
// a dedicated worker loop.
type Category string

const (
	CategoryRip            Category = "rip"
	CategoryVideo          Category = "video"
	CategoryArticle        Category = "article"
	CategoryBook           Category = "book"
	CategoryPlaylist       Category = "playlist"
	CategoryPodcastEpisode Category = "podcast_episode"
)

var allCategories = []Category{
	CategoryRip,
	CategoryVideo,
	CategoryArticle,
	CategoryBook,
	CategoryPlaylist,
	CategoryPodcastEpisode,
}

// AllCategories returns the ordered list of known categories.
func AllCategories() []Category {
	cp := make([]Category, len(allCategories))
	copy(cp, allCategories)
	return cp
}

// ParseCategory converts a string into a known Category.
func ParseCategory(value string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, category := range allCategories {
		if category == normalized {
			return normalized, true
		}
	}
	return "", false
}

// Job is a persisted unit of asynchronous work.
type Job struct {
	ID           string
	Category     Category
	Title        string
	Source       string
	Params       map[string]string
	Status       Status
	Progress     float64
	ETA          string
	Throughput   string
	ErrorMessage string
	OutputPath   string
	ClaimedBy    string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Param returns a category-specific parameter, or fallback when unset.
func (j *Job) Param(key, fallback string) string {
	if j == nil || j.Params == nil {
		return fallback
	}
	if value, ok := j.Params[key]; ok && value != "" {
		return value
	}
	return fallback
}

// JobFilter narrows ListJobs results. Zero values match everything.
type JobFilter struct {
	Status   Status
	Category Category
	Limit    int
}

// MediaKind classifies library entries.
type MediaKind string

const (
	MediaVideo   MediaKind = "video"
	MediaAudio   MediaKind = "audio"
	MediaArticle MediaKind = "article"
	MediaBook    MediaKind = "book"
)

// ParseMediaKind converts a string into a known MediaKind.
func ParseMediaKind(value string) (MediaKind, bool) {
	normalized := MediaKind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case MediaVideo, MediaAudio, MediaArticle, MediaBook:
		return normalized, true
	}
	return "", false
}

// MediaRecord is a library entry, usually produced by a completed job.
type MediaRecord struct {
	ID        string
	Kind      MediaKind
	Title     string
	Path      string
	SizeBytes int64
	Source    string
	AddedAt   time.Time
}

// Collection groups media records under a user-chosen name.
type Collection struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Podcast is a subscribed feed.
type Podcast struct {
	ID            string
	Title         string
	FeedURL       string
	AddedAt       time.Time
	LastCheckedAt *time.Time
}

// PodcastEpisode tracks one feed item and, once downloaded, the media record
// holding its audio.
type PodcastEpisode struct {
	ID          string
	PodcastID   string
	GUID        string
	Title       string
	AudioURL    string
	PublishedAt *time.Time
	MediaID     string
}

// Session is an authenticated browser session token.
type Session struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}
