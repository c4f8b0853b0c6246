package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	MinFreeGiB int    `toml:"min_free_gib"`
}

// Workers contains timing configuration for the background worker loops.
type Workers struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	ProgressInterval   int `toml:"progress_interval"`
}

// HandBrake contains configuration for disc ripping and encoding.
type HandBrake struct {
	Binary       string   `toml:"binary"`
	Format       string   `toml:"format"`
	VideoEncoder string   `toml:"video_encoder"`
	Quality      int      `toml:"quality"`
	AudioEncoder string   `toml:"audio_encoder"`
	AudioBitrate string   `toml:"audio_bitrate"`
	Preset       string   `toml:"preset"`
	ExtraArgs    []string `toml:"extra_args"`
	RipTimeout   int      `toml:"rip_timeout"`
}

// Downloads contains configuration for content download jobs.
type Downloads struct {
	YtdlpBinary     string `toml:"ytdlp_binary"`
	YtdlpFormat     string `toml:"ytdlp_format"`
	MonolithBinary  string `toml:"monolith_binary"`
	DownloadTimeout int    `toml:"download_timeout"`
}

// Podcasts contains configuration for feed checking.
type Podcasts struct {
	CheckIntervalHours int `toml:"check_interval_hours"`
}

// Disc contains optical drive configuration.
type Disc struct {
	Device string `toml:"device"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root shelfd configuration.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workers       Workers       `toml:"workers"`
	HandBrake     HandBrake     `toml:"handbrake"`
	Downloads     Downloads     `toml:"downloads"`
	Podcasts      Podcasts      `toml:"podcasts"`
	Disc          Disc          `toml:"disc"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	return expandPath("~/.config/shelfd/config.toml")
}

// Load reads configuration from the provided path, falling back to the
// SHELFD_CONFIG environment variable and then the default location. A missing
// file yields defaults; a malformed file is an error.
func Load(path string) (*Config, string, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = strings.TrimSpace(os.Getenv("SHELFD_CONFIG"))
	}
	if resolved == "" {
		resolved = DefaultPath()
	}
	resolved = expandPath(resolved)

	cfg := Default()
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.normalize()
			return &cfg, resolved, nil
		}
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	path = expandPath(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates every configured directory that workers depend on.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LibraryDir, c.Paths.LogDir}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "shelfd.db")
}

// LibrarySubdir returns a named subdirectory of the library root.
func (c *Config) LibrarySubdir(name string) string {
	return filepath.Join(c.Paths.LibraryDir, name)
}

func (c *Config) normalize() {
	c.Paths.DataDir = expandPath(c.Paths.DataDir)
	c.Paths.StagingDir = expandPath(c.Paths.StagingDir)
	c.Paths.LibraryDir = expandPath(c.Paths.LibraryDir)
	c.Paths.LogDir = expandPath(c.Paths.LogDir)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			if path == "~" {
				return home
			}
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
