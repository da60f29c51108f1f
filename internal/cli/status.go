package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/histfeed/internal/config"
	"github.com/runnerr0/histfeed/internal/history"
	"github.com/runnerr0/histfeed/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	TotalVisits       int64             `json:"total_visits"`
	DistinctURLs      int64             `json:"distinct_urls"`
	OldestVisit       string            `json:"oldest_visit,omitempty"`
	NewestVisit       string            `json:"newest_visit,omitempty"`
	ExtentDays        int               `json:"extent_days"`
	RetentionDays     int               `json:"retention_days"`
	BatchDays         int               `json:"batch_days"`
	ExclusionRules    int64             `json:"exclusion_rules"`
	TopDomains        []domainCountJSON `json:"top_domains"`
}

type domainCountJSON struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	ctx := context.Background()
	env, err := openEnvironment(ctx, c.globals)
	if err != nil {
		return err
	}
	defer env.Close()

	return c.executeWithStore(ctx, env.store, env.db, env.cfg, env.dbPath)
}

// executeWithStore runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, store storage.Store, db *sql.DB, cfg *config.Config, dbPath string) error {
	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	// The same extent the range slider would offer.
	sel := history.NewRangeSelector()
	if err := sel.Initialize(ctx, store, time.Now()); err != nil {
		return fmt.Errorf("history extent: %w", err)
	}
	extent := sel.Extent()

	dbSize := getDatabaseSize(db, dbPath)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(stats, extent, cfg, dbPath, dbSize)
	}
	return c.printStatusHuman(stats, extent, cfg, dbPath, dbSize)
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, extent history.StoreExtent, cfg *config.Config, dbPath string, dbSize int64) error {
	fmt.Println("histfeed status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("Visits:        %s (%s distinct URLs)\n", formatNumber(stats.TotalVisits), formatNumber(stats.DistinctURLs))

	if stats.TotalVisits > 0 {
		fmt.Printf("Oldest:        %s\n", stats.OldestVisit.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.NewestVisit.Local().Format("2006-01-02"))
		fmt.Printf("Extent:        %d days\n", extent.MaxDaysAgo)
	} else {
		fmt.Printf("Extent:        empty (slider offers %d days)\n", extent.MaxDaysAgo)
	}

	if cfg.Retention.Days > 0 {
		fmt.Printf("Retention:     %d days\n", cfg.Retention.Days)
	} else {
		fmt.Println("Retention:     keep forever")
	}
	fmt.Printf("Batch size:    %d days\n", cfg.Feed.BatchDays)
	fmt.Printf("Exclusions:    %s rules\n", formatNumber(stats.ExclusionRules))

	if len(stats.TopDomains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range stats.TopDomains {
			fmt.Printf("  %-24s %s\n", d.Domain, formatNumber(d.Count))
		}
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, extent history.StoreExtent, cfg *config.Config, dbPath string, dbSize int64) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		TotalVisits:       stats.TotalVisits,
		DistinctURLs:      stats.DistinctURLs,
		ExtentDays:        extent.MaxDaysAgo,
		RetentionDays:     cfg.Retention.Days,
		BatchDays:         cfg.Feed.BatchDays,
		ExclusionRules:    stats.ExclusionRules,
		TopDomains:        make([]domainCountJSON, len(stats.TopDomains)),
	}

	if stats.TotalVisits > 0 {
		out.OldestVisit = stats.OldestVisit.UTC().Format(time.RFC3339)
		out.NewestVisit = stats.NewestVisit.UTC().Format(time.RFC3339)
	}

	for i, d := range stats.TopDomains {
		out.TopDomains[i] = domainCountJSON{Domain: d.Domain, Count: d.Count}
	}

	return writeJSON(out)
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}
