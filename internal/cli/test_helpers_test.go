package cli

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/histfeed/internal/config"
	"github.com/runnerr0/histfeed/internal/storage"
)

// testNow is a fixed afternoon used wherever a command takes a clock.
var testNow = time.Date(2026, time.March, 18, 14, 30, 0, 0, time.Local)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	defer func() { os.Stdout = old }()
	fn()
	w.Close()
	return <-done
}

// openTestDB creates a migrated in-memory SQLite database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// Every new connection to :memory: is a fresh database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())
	return db
}

// newTestStore returns an in-memory store and its database.
func newTestStore(t *testing.T) (*storage.SQLiteStore, *sql.DB) {
	t.Helper()
	db := openTestDB(t)
	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, db
}

// seedDays adds one visit at 10:00 on each of the last days days, counting
// today as day 0. Visit n is titled "Page n".
func seedDays(t *testing.T, store *storage.SQLiteStore, days int) {
	t.Helper()
	ctx := context.Background()
	for n := 0; n < days; n++ {
		y, m, d := testNow.Date()
		require.NoError(t, store.AddVisit(ctx, &storage.Visit{
			URL:       fmt.Sprintf("https://example.com/%d", n),
			Title:     fmt.Sprintf("Page %d", n),
			Timestamp: time.Date(y, m, d-n, 10, 0, 0, 0, time.Local),
		}))
	}
}

func testConfig() *config.Config {
	return config.DefaultConfig()
}

func fixedClock() time.Time { return testNow }
