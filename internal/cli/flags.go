package cli

import (
	"database/sql"
	"io"
	"time"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DB      string `long:"db" description:"Override the SQLite database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// HistoryCommand prints the time-windowed feed for a day range.
type HistoryCommand struct {
	From    int    `long:"from" description:"Newer bound in days ago (0 = today)" default:"0"`
	To      int    `long:"to" description:"Older bound in days ago (-1 = oldest visit)" default:"-1"`
	Query   string `long:"query" description:"Only show loaded visits whose title or URL contains this text"`
	Batches int    `long:"batches" description:"Number of batches to load (0 = until exhausted)" default:"0"`

	globals *GlobalFlags
	version string
	now     func() time.Time // injectable for testing
}

// PanelCommand opens the interactive history panel.
type PanelCommand struct {
	globals *GlobalFlags
	version string
}

// SearchCommand runs a substring search against the store.
type SearchCommand struct {
	Since  string `long:"since" description:"Only visits newer than duration (e.g., 7d, 24h, 2w)" default:"30d"`
	Until  string `long:"until" description:"Only visits older than duration"`
	Domain string `long:"domain" description:"Filter by exact domain"`
	Limit  int    `long:"limit" description:"Maximum results (capped at 200)" default:"20"`

	globals *GlobalFlags
	version string
}

// AddCommand records a visit by hand.
type AddCommand struct {
	URL         string `long:"url" description:"URL to record (required)"`
	Title       string `long:"title" description:"Page title"`
	At          string `long:"at" description:"Visit time, RFC 3339 or YYYY-MM-DD HH:MM (default now)"`
	BrowserName string `long:"browser" description:"Source browser label" default:"manual"`

	globals *GlobalFlags
	version string
}

// RemoveCommand deletes every visit to the given URLs.
type RemoveCommand struct {
	URLs []string `long:"url" description:"URL to delete (repeatable)"`

	globals *GlobalFlags
	version string
}

// ImportCommand copies visits out of a Firefox places.sqlite file.
type ImportCommand struct {
	Places    string `long:"places" description:"Path to a Firefox places.sqlite file (required)"`
	BatchSize int    `long:"batch-size" description:"Visits per transaction" default:"500"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows database statistics and the feed extent.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// PruneCommand deletes visits older than the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand deletes ALL visits with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	db      *sql.DB   // injectable for testing; nil means open the configured DB
	stdin   io.Reader // injectable for testing; nil means os.Stdin
}
