package cli

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/runnerr0/histfeed/internal/config"
	"github.com/runnerr0/histfeed/internal/logging"
	"github.com/runnerr0/histfeed/internal/storage"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for add command")
	}

	ctx := context.Background()
	env, err := openEnvironment(ctx, c.globals)
	if err != nil {
		return err
	}
	defer env.Close()

	return c.executeWithStore(ctx, env.store, time.Now())
}

// executeWithStore runs the add logic against a provided store (used by tests).
func (c *AddCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore, now time.Time) error {
	parsed, err := url.ParseRequestURI(c.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s", c.URL)
	}

	at, err := parseVisitTime(c.At, now)
	if err != nil {
		return fmt.Errorf("invalid --at value: %w", err)
	}

	// The store skips excluded domains silently; the CLI user gets an error.
	domain := parsed.Hostname()
	if store.IsExcluded(domain) {
		if category, ok := config.DenylistCategory(domain); ok {
			return fmt.Errorf("domain %q is excluded by exclusion rules (%s)", domain, category)
		}
		return fmt.Errorf("domain %q is excluded by exclusion rules", domain)
	}

	visit := &storage.Visit{
		URL:       c.URL,
		Title:     c.Title,
		Browser:   c.BrowserName,
		Source:    "manual",
		Timestamp: at,
	}
	if err := store.AddVisit(ctx, visit); err != nil {
		return fmt.Errorf("storing visit: %w", err)
	}
	log := logging.WithCommand("add")
	log.Debug().
		Str("id", visit.ID).
		Str("url", logging.RedactURL(visit.URL)).
		Msg("visit added")

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]interface{}{
			"id":     visit.ID,
			"url":    visit.URL,
			"title":  visit.Title,
			"domain": visit.Domain,
			"ts":     visit.Timestamp.Format(time.RFC3339),
		})
	}

	fmt.Printf("Added visit %s (%s)\n", visit.ID, visit.Timestamp.Format(time.RFC3339))
	fmt.Printf("  URL: %s\n", visit.URL)
	if visit.Title != "" {
		fmt.Printf("  Title: %s\n", visit.Title)
	}
	return nil
}
