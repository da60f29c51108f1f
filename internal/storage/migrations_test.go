package storage

import (
	"context"
	"database/sql"
	"math"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every new connection to :memory: is a fresh database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	err := runner.Run()
	require.NoError(t, err)

	expectedTables := []string{
		"visits",
		"exclusions",
		"audit_log",
		"import_cursors",
		"schema_migrations",
	}
	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationRunner_IndexesCreated(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	expectedIndexes := []string{
		"idx_visits_ts",
		"idx_visits_url",
		"idx_visits_domain",
		"idx_exclusions_rule",
		"idx_audit_log_ts",
	}
	for _, idx := range expectedIndexes {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
		assert.Equal(t, idx, name)
	}
}

func TestMigrationRunner_DefaultExclusions(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM exclusions WHERE is_default = 1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 25, count, "should have 25 default exclusion rules")

	categories := map[string]int{
		"Banking - financial privacy":           9,
		"Payment - financial privacy":           2,
		"Password manager - credential privacy": 4,
		"Auth provider - credential privacy":    4,
		"Healthcare - HIPAA privacy":            2,
		"Tax - financial privacy":               2,
		"Adult content exclusion":               2,
	}
	for reason, expected := range categories {
		var c int
		err := db.QueryRow(
			"SELECT COUNT(*) FROM exclusions WHERE reason = ? AND is_default = 1", reason,
		).Scan(&c)
		require.NoError(t, err)
		assert.Equal(t, expected, c, "category %q should have %d rules", reason, expected)
	}
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "each migration is recorded once")

	err = db.QueryRow("SELECT COUNT(*) FROM exclusions WHERE is_default = 1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 25, count, "exclusions should not be duplicated on re-run")
}

func TestMigrationRunner_SchemaMigrationsTracking(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	rows, err := db.Query("SELECT version, name FROM schema_migrations ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var version int
		var name string
		require.NoError(t, rows.Scan(&version, &name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"initial_schema", "import_cursors", "import_cursor_row"}, names)
}

func TestMigrationRunner_OlderCursorsCoverTheirTimestamp(t *testing.T) {
	db := openTestDB(t)
	older := NewMigrationRunner(db)
	older.migrations = older.migrations[:2]
	require.NoError(t, older.Run())
	_, err := db.Exec("INSERT INTO import_cursors (source, last_ts_us) VALUES ('places', 500)")
	require.NoError(t, err)

	require.NoError(t, NewMigrationRunner(db).Run())

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	defer store.Close()
	pos, err := store.ImportCursor(context.Background(), "places")
	require.NoError(t, err)
	assert.Equal(t, int64(500), pos.Micros)
	assert.Equal(t, int64(math.MaxInt64), pos.RowID)
}

func TestMigrationRunner_JournalMode(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.RunWithJournal("truncate"))

	var journalMode string
	err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	// In-memory databases always report "memory".
	assert.Contains(t, []string{"truncate", "memory"}, journalMode)
}

func TestMigrationRunner_UnknownJournalMode(t *testing.T) {
	db := openTestDB(t)
	err := NewMigrationRunner(db).RunWithJournal("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown journal mode")
}

func TestMigrationRunner_ForeignKeys(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var fk int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	require.NoError(t, err)
	assert.Equal(t, 1, fk, "foreign_keys should be enabled")
}

func TestMigrationRunner_VisitsTableColumns(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	_, err := db.Exec(`
		INSERT INTO visits (id, ts_us, url, title, domain, browser, source)
		VALUES ('VIS-test', 1700000000000000, 'https://example.com', 'Test', 'example.com', 'firefox', 'places')
	`)
	require.NoError(t, err)

	var tsUs int64
	var url, title, source string
	err = db.QueryRow("SELECT ts_us, url, title, source FROM visits WHERE id = 'VIS-test'").
		Scan(&tsUs, &url, &title, &source)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000000), tsUs)
	assert.Equal(t, "https://example.com", url)
	assert.Equal(t, "Test", title)
	assert.Equal(t, "places", source)
}

func TestMigrationRunner_VisitsRequireTimestamp(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	_, err := db.Exec(`INSERT INTO visits (id, url) VALUES ('VIS-x', 'https://example.com')`)
	assert.Error(t, err, "ts_us is NOT NULL")
}

func TestMigrationRunner_ExclusionRuleTypeCheck(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	_, err := db.Exec(`INSERT INTO exclusions (rule_type, rule_value) VALUES ('glob', '*.example')`)
	assert.Error(t, err, "rule_type CHECK constraint should reject unknown types")
}
