// Package logging configures the process-wide slog logger and provides the
// attribute helpers used across shelfd.
package logging
