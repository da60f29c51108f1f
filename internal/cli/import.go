package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/runnerr0/histfeed/internal/config"
	"github.com/runnerr0/histfeed/internal/logging"
	"github.com/runnerr0/histfeed/internal/places"
)

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	if c.Places == "" {
		return fmt.Errorf("--places is required for import command")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	env, err := openEnvironment(ctx, c.globals)
	if err != nil {
		return err
	}
	defer env.Close()

	return c.executeWithStore(ctx, env.store)
}

// executeWithStore imports into sink (for testing).
func (c *ImportCommand) executeWithStore(ctx context.Context, sink places.Sink) error {
	path, err := config.ExpandPath(c.Places)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("places file: %w", err)
	}

	im := places.NewImporter(sink, logging.WithCommand("import"))
	im.SetBatchSize(c.BatchSize)

	start := time.Now()
	res, err := im.Import(ctx, path)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]interface{}{
			"file":    path,
			"scanned": res.Scanned,
			"added":   res.Added,
			"skipped": res.Skipped,
			"cursor":  res.Cursor,
		})
	}

	fmt.Printf("Imported %s of %s %s from %s in %s\n",
		formatNumber(int64(res.Added)), formatNumber(int64(res.Scanned)),
		plural(int64(res.Scanned), "visit"), path, time.Since(start).Round(time.Millisecond))
	if res.Skipped > 0 {
		fmt.Printf("  %s excluded by denylist\n", formatNumber(int64(res.Skipped)))
	}
	if res.Cursor > 0 {
		fmt.Printf("  Newest visit: %s\n", time.UnixMicro(res.Cursor).Local().Format("2006-01-02 15:04"))
	}
	return nil
}
