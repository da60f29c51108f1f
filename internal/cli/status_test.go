package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/histfeed/internal/storage"
)

func runStatus(t *testing.T, cmd *StatusCommand, store *storage.SQLiteStore, db *sql.DB) string {
	t.Helper()
	if cmd.globals == nil {
		cmd.globals = &GlobalFlags{}
	}
	return captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, db, testConfig(), ":memory:"))
	})
}

func TestStatus_EmptyDB(t *testing.T) {
	store, db := newTestStore(t)

	output := runStatus(t, &StatusCommand{version: "dev"}, store, db)

	assert.Contains(t, output, "histfeed status")
	assert.Contains(t, output, "Version:       dev")
	assert.Contains(t, output, "Visits:        0 (0 distinct URLs)")
	assert.Contains(t, output, "Extent:        empty (slider offers 365 days)")
	assert.Contains(t, output, "Retention:     90 days")
	assert.Contains(t, output, "Exclusions:    25 rules")
	assert.NotContains(t, output, "Oldest:")
	assert.NotContains(t, output, "Top Domains:")
}

func TestStatus_WithData(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.AddVisit(ctx, &storage.Visit{
			URL:       fmt.Sprintf("https://example.com/%d", i),
			Timestamp: now.AddDate(0, 0, -4*i),
		}))
	}

	output := runStatus(t, &StatusCommand{version: "1.0.0"}, store, db)

	assert.Contains(t, output, "Visits:        3 (3 distinct URLs)")
	assert.Contains(t, output, "Oldest:        "+now.AddDate(0, 0, -8).Format("2006-01-02"))
	assert.Contains(t, output, "Newest:        "+now.Format("2006-01-02"))
	assert.Contains(t, output, "Extent:        8 days")
	assert.Contains(t, output, "Top Domains:")
	assert.Contains(t, output, "example.com")
}

func TestStatus_TopDomainsSorted(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	counts := map[string]int{"popular.com": 5, "medium.com": 3, "rare.com": 1}
	for domain, n := range counts {
		for i := 0; i < n; i++ {
			require.NoError(t, store.AddVisit(ctx, &storage.Visit{
				URL:       fmt.Sprintf("https://%s/page%d", domain, i),
				Timestamp: time.Now().Add(-time.Duration(i) * time.Minute),
			}))
		}
	}

	output := runStatus(t, &StatusCommand{}, store, db)

	popular := strings.Index(output, "popular.com")
	medium := strings.Index(output, "medium.com")
	rare := strings.Index(output, "rare.com")
	require.True(t, popular >= 0 && medium >= 0 && rare >= 0)
	assert.Less(t, popular, medium)
	assert.Less(t, medium, rare)
}

func TestStatus_RetentionDisabled(t *testing.T) {
	store, db := newTestStore(t)
	cfg := testConfig()
	cfg.Retention.Days = 0

	cmd := &StatusCommand{globals: &GlobalFlags{}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store, db, cfg, ":memory:"))
	})
	assert.Contains(t, output, "Retention:     keep forever")
}

func TestStatus_JSONOutput(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddVisit(ctx, &storage.Visit{URL: "https://example.com/", Timestamp: time.Now().AddDate(0, 0, -2)}))
	require.NoError(t, store.AddVisit(ctx, &storage.Visit{URL: "https://example.com/", Timestamp: time.Now()}))

	output := runStatus(t, &StatusCommand{version: "2.0.0", globals: &GlobalFlags{JSON: true}}, store, db)

	var out statusJSON
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.Equal(t, "2.0.0", out.Version)
	assert.Equal(t, int64(2), out.TotalVisits)
	assert.Equal(t, int64(1), out.DistinctURLs)
	assert.Equal(t, 2, out.ExtentDays)
	assert.Equal(t, 90, out.RetentionDays)
	assert.Equal(t, 2, out.BatchDays)
	assert.Equal(t, int64(25), out.ExclusionRules)
	assert.NotEmpty(t, out.OldestVisit)
	require.Len(t, out.TopDomains, 1)
	assert.Equal(t, domainCountJSON{Domain: "example.com", Count: 2}, out.TopDomains[0])
}

func TestStatus_DatabaseSizeReported(t *testing.T) {
	_, db := newTestStore(t)
	assert.Greater(t, getDatabaseSize(db, ":memory:"), int64(0), "falls back to page_count * page_size")

	cfg := testConfig()
	path := filepath.Join(t.TempDir(), "histfeed.db")
	store, fileDB, err := openStore(context.Background(), path, cfg)
	require.NoError(t, err)
	defer fileDB.Close()
	defer store.Close()
	assert.Greater(t, getDatabaseSize(fileDB, path), int64(0))
}
