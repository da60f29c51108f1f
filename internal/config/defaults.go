package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Retention: RetentionConfig{
			Days: 90,
		},
		Capture: CaptureConfig{
			DenylistDomains: []string{},
			DenylistRegex:   []string{},
		},
		Storage: StorageConfig{
			Path:              "~/.config/histfeed",
			SQLiteFile:        "histfeed.db",
			SQLiteJournalMode: "wal",
		},
		Feed: FeedConfig{
			BatchDays:           2,
			SelectionDebounceMs: 300,
			SearchDebounceMs:    300,
			ScrollThrottleMs:    100,
			ScrollThresholdPx:   200,
			SearchLimit:         200,
			Reference:           "today",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "histfeed.log",
		},
	}
}
