package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"shelfd/internal/store"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiCyan   = "\x1b[36m"
)

func paintStatus(status store.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	switch status {
	case store.StatusDone:
		return ansiGreen + string(status) + ansiReset
	case store.StatusRunning:
		return ansiCyan + string(status) + ansiReset
	case store.StatusFailed:
		return ansiRed + string(status) + ansiReset
	case store.StatusCancelled:
		return ansiYellow + string(status) + ansiReset
	default:
		return string(status)
	}
}

func formatProgress(job *store.Job) string {
	switch job.Status {
	case store.StatusQueued:
		return "-"
	case store.StatusDone:
		return "100%"
	default:
		return fmt.Sprintf("%.0f%%", job.Progress)
	}
}

func jobTitle(job *store.Job) string {
	if title := strings.TrimSpace(job.Title); title != "" {
		return title
	}
	return job.Source
}

func formatAge(t time.Time) string {
	return humanize.Time(t)
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
