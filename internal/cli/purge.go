package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/histfeed/internal/logging"
	"github.com/runnerr0/histfeed/internal/storage"
)

// setDB allows tests to inject a database connection.
func (c *PurgeCommand) setDB(db *sql.DB) {
	c.db = db
}

// confirm asks for the literal word PURGE on stdin.
func (c *PurgeCommand) confirm() error {
	fmt.Println("⚠ WARNING: This will permanently delete ALL stored history.")
	fmt.Println("  - All visits, including imported ones")
	fmt.Println("  - All import cursors (the next import starts over)")
	fmt.Println()
	fmt.Println("Exclusion rules are kept. This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	var in io.Reader = os.Stdin
	if c.stdin != nil {
		in = c.stdin
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	if !c.Force {
		if err := c.confirm(); err != nil {
			return err
		}
	}

	ctx := context.Background()

	var store *storage.SQLiteStore
	if c.db != nil {
		s, err := storage.NewSQLiteStore(c.db)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		store = s
	} else {
		env, err := openEnvironment(ctx, c.globals)
		if err != nil {
			return err
		}
		defer env.db.Close()
		store = env.store
	}
	defer store.Close()

	if err := store.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	log := logging.WithCommand("purge")
	log.Warn().Msg("all visits purged")

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]interface{}{
			"purged":  true,
			"message": "all visits deleted",
		})
	}

	fmt.Println("Purged all visits. History is empty.")
	return nil
}
