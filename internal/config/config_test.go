package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shelfd/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, path, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Workers.PollInterval != 2 {
		t.Fatalf("expected default poll interval, got %d", cfg.Workers.PollInterval)
	}
	if cfg.HandBrake.Binary != "HandBrakeCLI" {
		t.Fatalf("unexpected default handbrake binary: %s", cfg.HandBrake.Binary)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`staging_dir = "` + filepath.Join(dir, "staging") + `"`,
		`library_dir = "` + filepath.Join(dir, "library") + `"`,
		"[workers]",
		"poll_interval = 7",
		"[logging]",
		`format = "JSON"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers.PollInterval != 7 {
		t.Fatalf("expected poll interval 7, got %d", cfg.Workers.PollInterval)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized format json, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[workers\npoll_interval = 1"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.Workers.PollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero poll interval")
	}

	cfg = config.Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported log format")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when file exists")
	}
}
