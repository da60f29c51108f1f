package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/histfeed/internal/config"
	"github.com/runnerr0/histfeed/internal/storage"
)

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	ctx := context.Background()
	env, err := openEnvironment(ctx, c.globals)
	if err != nil {
		return err
	}
	defer env.Close()

	return c.executeWithStore(ctx, env.store, env.cfg, args)
}

// executeWithStore runs the search against a provided store (for testing).
func (c *SearchCommand) executeWithStore(ctx context.Context, store storage.Store, cfg *config.Config, args []string) error {
	query := strings.Join(args, " ")

	now := time.Now()
	var since time.Time
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		since = now.Add(-dur)
	}

	var until time.Time
	if c.Until != "" {
		dur, err := parseDuration(c.Until)
		if err != nil {
			return fmt.Errorf("invalid --until value %q: %w", c.Until, err)
		}
		until = now.Add(-dur)
	}

	limit := c.Limit
	if cfg != nil && cfg.Feed.SearchLimit > 0 && (limit <= 0 || limit > cfg.Feed.SearchLimit) {
		limit = cfg.Feed.SearchLimit
	}

	results, err := store.SearchRange(ctx, storage.SearchQuery{
		Query:  query,
		Domain: c.Domain,
		Since:  since,
		Until:  until,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(query, results)
	}
	return c.printHuman(query, results)
}

func (c *SearchCommand) window() string {
	if c.Since == "" {
		return "all time"
	}
	return "since " + c.Since
}

func (c *SearchCommand) printHuman(query string, results []storage.Visit) error {
	if len(results) == 0 {
		if query != "" {
			fmt.Printf("No results found for %q (%s)\n", query, c.window())
		} else {
			fmt.Printf("No results found (%s)\n", c.window())
		}
		return nil
	}

	word := plural(int64(len(results)), "result")
	if query != "" {
		fmt.Printf("Found %d %s for %q (%s)\n\n", len(results), word, query, c.window())
	} else {
		fmt.Printf("Found %d %s (%s)\n\n", len(results), word, c.window())
	}

	for i, v := range results {
		title := v.Title
		if title == "" {
			title = v.URL
		}
		fmt.Printf("%d. %s", i+1, title)
		if v.Domain != "" {
			fmt.Printf(" — %s", v.Domain)
		}
		fmt.Println()

		fmt.Printf("   %s\n", v.URL)

		meta := v.Timestamp.Local().Format("2006-01-02 15:04")
		if v.Source != "" {
			meta += " · " + v.Source
		}
		if v.Browser != "" {
			meta += " · " + v.Browser
		}
		fmt.Printf("   %s\n", meta)

		if i < len(results)-1 {
			fmt.Println()
		}
	}

	return nil
}

type jsonResult struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Domain    string `json:"domain"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Browser   string `json:"browser,omitempty"`
}

type jsonSearchOutput struct {
	Count   int          `json:"count"`
	Query   string       `json:"query"`
	Results []jsonResult `json:"results"`
}

func (c *SearchCommand) printJSON(query string, results []storage.Visit) error {
	out := jsonSearchOutput{
		Count:   len(results),
		Query:   query,
		Results: make([]jsonResult, len(results)),
	}

	for i, v := range results {
		out.Results[i] = jsonResult{
			ID:        v.ID,
			URL:       v.URL,
			Title:     v.Title,
			Domain:    v.Domain,
			Timestamp: v.Timestamp.UTC().Format(time.RFC3339),
			Source:    v.Source,
			Browser:   v.Browser,
		}
	}

	return writeJSON(out)
}
