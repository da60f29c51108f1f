package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/histfeed/internal/config"
	"github.com/runnerr0/histfeed/internal/logging"
	"github.com/runnerr0/histfeed/internal/storage"
)

// pruneJSON is the JSON output structure for the prune command.
type pruneJSON struct {
	Cutoff string `json:"cutoff"`
	DryRun bool   `json:"dry_run"`
	Count  int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	ctx := context.Background()
	env, err := openEnvironment(ctx, c.globals)
	if err != nil {
		return err
	}
	defer env.Close()

	return c.executeWithStore(ctx, env.store, env.cfg, time.Now())
}

// retention resolves the pruning age: --older-than wins over the config.
// Zero means nothing expires.
func (c *PruneCommand) retention(cfg *config.Config) (time.Duration, error) {
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return 0, fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("--older-than must be positive, got %q", c.OlderThan)
		}
		return d, nil
	}
	return time.Duration(cfg.Retention.Days) * 24 * time.Hour, nil
}

// executeWithStore prunes against a provided store (for testing).
func (c *PruneCommand) executeWithStore(ctx context.Context, store storage.Store, cfg *config.Config, now time.Time) error {
	age, err := c.retention(cfg)
	if err != nil {
		return err
	}
	if age == 0 {
		if c.globals != nil && c.globals.JSON {
			return writeJSON(pruneJSON{DryRun: c.DryRun})
		}
		fmt.Println("Retention is disabled (retention.days = 0); nothing to prune.")
		return nil
	}

	cutoff := now.Add(-age)

	var n int64
	if c.DryRun {
		n, err = store.CountOlderThan(ctx, cutoff)
	} else {
		n, err = store.PruneExpired(ctx, cutoff)
	}
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	log := logging.WithCommand("prune")
	log.Info().
		Time("cutoff", cutoff).
		Bool("dry_run", c.DryRun).
		Int64("count", n).
		Msg("prune finished")

	if c.globals != nil && c.globals.JSON {
		return writeJSON(pruneJSON{
			Cutoff: cutoff.UTC().Format(time.RFC3339),
			DryRun: c.DryRun,
			Count:  n,
		})
	}

	when := cutoff.Local().Format("2006-01-02 15:04")
	if c.DryRun {
		fmt.Printf("Would prune %s %s older than %s (dry run)\n", formatNumber(n), plural(n, "visit"), when)
		return nil
	}
	fmt.Printf("Pruned %s %s older than %s\n", formatNumber(n), plural(n, "visit"), when)
	return nil
}
