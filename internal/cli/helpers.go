package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/histfeed/internal/config"
	"github.com/runnerr0/histfeed/internal/logging"
	"github.com/runnerr0/histfeed/internal/storage"
)

// environment bundles what a command needs: resolved config and a migrated
// store.
type environment struct {
	cfg    *config.Config
	dbPath string
	db     *sql.DB
	store  *storage.SQLiteStore
}

func (e *environment) Close() error {
	e.store.Close()
	return e.db.Close()
}

// loadConfig reads --config, or the default config file, creating it with
// defaults on first use.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if globals != nil && globals.Config != "" {
		path, perr := config.ExpandPath(globals.Config)
		if perr != nil {
			return nil, perr
		}
		cfg, err = config.LoadOrCreateAt(path)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// initLogging points the global logger at out using the configured level
// and format. --verbose forces debug.
func initLogging(globals *GlobalFlags, cfg *config.Config, out io.Writer) {
	lc := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
	}
	if globals != nil && globals.Verbose {
		lc.Level = "debug"
	}
	logging.Init(lc)
}

// resolveDBPath returns --db when set, otherwise the configured path.
func resolveDBPath(globals *GlobalFlags, cfg *config.Config) (string, error) {
	if globals != nil && globals.DB != "" {
		return config.ExpandPath(globals.DB)
	}
	return cfg.DBPath()
}

// openStore opens the SQLite database at dbPath, applies migrations and
// loads the configured denylist into the exclusion rules.
func openStore(ctx context.Context, dbPath string, cfg *config.Config) (*storage.SQLiteStore, *sql.DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	runner := storage.NewMigrationRunner(db)
	if err := runner.RunWithJournal(cfg.Storage.SQLiteJournalMode); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	if err := store.AddExclusions(ctx, cfg.Denylist(), cfg.Capture.DenylistRegex); err != nil {
		store.Close()
		db.Close()
		return nil, nil, fmt.Errorf("load denylist: %w", err)
	}

	return store, db, nil
}

// openEnvironment loads config, initialises stderr logging and opens the
// store.
func openEnvironment(ctx context.Context, globals *GlobalFlags) (*environment, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}
	initLogging(globals, cfg, os.Stderr)

	dbPath, err := resolveDBPath(globals, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	store, db, err := openStore(ctx, dbPath, cfg)
	if err != nil {
		return nil, err
	}
	log := logging.Component("storage")
	log.Debug().Str("db", dbPath).Str("journal", cfg.Storage.SQLiteJournalMode).Msg("store opened")

	return &environment{cfg: cfg, dbPath: dbPath, db: db, store: store}, nil
}

// parseDuration parses a human-friendly duration string like "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}

	switch suffix {
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 's':
		return time.Duration(n) * time.Second, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", string(suffix), s)
	}
}

// visitTimeLayouts are accepted by --at, tried in order.
var visitTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseVisitTime parses s in local time. Blank means now.
func parseVisitTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	for _, layout := range visitTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339 or YYYY-MM-DD HH:MM)", s)
}

// writeJSON writes v to stdout as indented JSON.
func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// plural returns word, with an s unless n is one.
func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
