package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		problems = append(problems, "paths.staging_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		problems = append(problems, "paths.library_dir must not be empty")
	}
	if c.Paths.MinFreeGiB < 0 {
		problems = append(problems, "paths.min_free_gib must not be negative")
	}
	if c.Workers.PollInterval <= 0 {
		problems = append(problems, "workers.poll_interval must be positive")
	}
	if c.Workers.ErrorRetryInterval <= 0 {
		problems = append(problems, "workers.error_retry_interval must be positive")
	}
	if c.Workers.ProgressInterval <= 0 {
		problems = append(problems, "workers.progress_interval must be positive")
	}
	if strings.TrimSpace(c.HandBrake.Binary) == "" {
		problems = append(problems, "handbrake.binary must not be empty")
	}
	if c.HandBrake.Quality < 0 || c.HandBrake.Quality > 51 {
		problems = append(problems, "handbrake.quality must be between 0 and 51")
	}
	if c.Podcasts.CheckIntervalHours <= 0 {
		problems = append(problems, "podcasts.check_interval_hours must be positive")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
