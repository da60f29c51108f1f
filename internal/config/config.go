package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/histfeed/config.yaml"

// Config holds all histfeed configuration.
type Config struct {
	Retention RetentionConfig `yaml:"retention"`
	Capture   CaptureConfig   `yaml:"capture"`
	Storage   StorageConfig   `yaml:"storage"`
	Feed      FeedConfig      `yaml:"feed"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type RetentionConfig struct {
	Days int `yaml:"days"`
}

type CaptureConfig struct {
	DenylistDomains []string `yaml:"denylist_domains"`
	DenylistRegex   []string `yaml:"denylist_regex"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

// FeedConfig tunes the history feed and its panel.
type FeedConfig struct {
	BatchDays           int    `yaml:"batch_days"`
	SelectionDebounceMs int    `yaml:"selection_debounce_ms"`
	SearchDebounceMs    int    `yaml:"search_debounce_ms"`
	ScrollThrottleMs    int    `yaml:"scroll_throttle_ms"`
	ScrollThresholdPx   int    `yaml:"scroll_threshold_px"`
	SearchLimit         int    `yaml:"search_limit"`
	Reference           string `yaml:"reference"` // "today" or "ceiling"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
	File   string `yaml:"file"`
}

// DBPath returns the expanded SQLite database path.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LogPath returns the expanded log file path. Relative names live under the
// storage directory.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	file, err := ExpandPath(c.Logging.File)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(file) {
		return file, nil
	}
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

// SelectionDebounce returns the slider settle delay.
func (f FeedConfig) SelectionDebounce() time.Duration {
	return time.Duration(f.SelectionDebounceMs) * time.Millisecond
}

// SearchDebounce returns the search input settle delay.
func (f FeedConfig) SearchDebounce() time.Duration {
	return time.Duration(f.SearchDebounceMs) * time.Millisecond
}

// ScrollThrottle returns the minimum interval between scroll checks.
func (f FeedConfig) ScrollThrottle() time.Duration {
	return time.Duration(f.ScrollThrottleMs) * time.Millisecond
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	if c.Retention.Days < 0 {
		return fmt.Errorf("retention.days must not be negative, got %d", c.Retention.Days)
	}
	if c.Feed.BatchDays < 1 {
		return fmt.Errorf("feed.batch_days must be at least 1, got %d", c.Feed.BatchDays)
	}
	if c.Feed.SearchLimit < 0 {
		return fmt.Errorf("feed.search_limit must not be negative, got %d", c.Feed.SearchLimit)
	}
	switch c.Feed.Reference {
	case "", "today", "ceiling":
	default:
		return fmt.Errorf("feed.reference must be \"today\" or \"ceiling\", got %q", c.Feed.Reference)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML or
// holds out-of-range values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
