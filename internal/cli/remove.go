package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/histfeed/internal/history"
	"github.com/runnerr0/histfeed/internal/logging"
)

// Execute implements the go-flags Commander interface for RemoveCommand.
func (c *RemoveCommand) Execute(args []string) error {
	urls := append(append([]string{}, c.URLs...), args...)
	if len(urls) == 0 {
		return fmt.Errorf("remove needs at least one --url")
	}
	c.URLs = urls

	ctx := context.Background()
	env, err := openEnvironment(ctx, c.globals)
	if err != nil {
		return err
	}
	defer env.Close()

	return c.executeWithStore(ctx, env.store)
}

// executeWithStore deletes the visits through the history store contract.
func (c *RemoveCommand) executeWithStore(ctx context.Context, store history.Store) error {
	if len(c.URLs) == 0 {
		return fmt.Errorf("remove needs at least one --url")
	}

	n, err := store.Remove(ctx, c.URLs...)
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	log := logging.WithCommand("remove")
	log.Info().
		Strs("urls", logging.RedactURLs(c.URLs)).
		Int64("removed", n).
		Msg("visits removed")

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]interface{}{
			"removed": n,
			"urls":    c.URLs,
		})
	}

	fmt.Printf("Removed %d %s\n", n, plural(n, "visit"))
	return nil
}
