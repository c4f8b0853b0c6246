// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"shelfd/internal/config"
	"shelfd/internal/store"
)

// NewConfig returns a validated config rooted in a per-test temp directory,
// with intervals tightened for fast tests.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.StagingDir = filepath.Join(root, "staging")
	cfg.Paths.LibraryDir = filepath.Join(root, "library")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.MinFreeGiB = 0
	cfg.Workers.PollInterval = 1
	cfg.Workers.ErrorRetryInterval = 1
	cfg.Workers.ProgressInterval = 1

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a store against the config's database path and closes
// it when the test ends.
func MustOpenStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
