package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/runnerr0/histfeed/internal/history"
	"github.com/runnerr0/histfeed/internal/logging"
)

// MaxSearchResults caps range-scoped searches.
const MaxSearchResults = 200

// Store defines the visit store operations used outside the engine.
type Store interface {
	history.Store

	AddVisit(ctx context.Context, visit *Visit) error
	AddVisits(ctx context.Context, visits []Visit) (int, error)
	SearchRange(ctx context.Context, query SearchQuery) ([]Visit, error)
	CountOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
	PruneExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	insertVisit *sql.Stmt
	queryRange  *sql.Stmt
	queryOldest *sql.Stmt

	// Cached exclusion rules, reloaded when a rule is added.
	domainExclusions []string
	regexExclusions  []*regexp.Regexp
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	if err := s.loadExclusions(); err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertVisit, err = s.db.Prepare(`
		INSERT INTO visits (id, ts_us, url, title, domain, browser, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.queryRange, err = s.db.Prepare(`
		SELECT id, ts_us, url, title, domain, browser, source
		FROM visits
		WHERE ts_us >= ? AND ts_us < ?
		ORDER BY ts_us DESC
		LIMIT ?
	`)
	if err != nil {
		return err
	}

	s.queryOldest, err = s.db.Prepare(`
		SELECT id, ts_us, url, title, domain, browser, source
		FROM visits ORDER BY ts_us ASC LIMIT 1
	`)
	if err != nil {
		return err
	}

	return nil
}

// loadExclusions loads domain and regex exclusion rules from the database.
func (s *SQLiteStore) loadExclusions() error {
	rows, err := s.db.Query("SELECT rule_type, rule_value FROM exclusions")
	if err != nil {
		return err
	}
	defer rows.Close()

	s.domainExclusions = nil
	s.regexExclusions = nil
	for rows.Next() {
		var ruleType, ruleValue string
		if err := rows.Scan(&ruleType, &ruleValue); err != nil {
			return err
		}
		switch ruleType {
		case "domain":
			s.domainExclusions = append(s.domainExclusions, ruleValue)
		case "regex":
			re, err := regexp.Compile(ruleValue)
			if err != nil {
				continue // skip invalid regex
			}
			s.regexExclusions = append(s.regexExclusions, re)
		}
	}

	return rows.Err()
}

// AddExclusions registers extra domain and regex rules, typically from the
// config denylist. Existing rules are left alone.
func (s *SQLiteStore) AddExclusions(ctx context.Context, domains, patterns []string) error {
	const insertSQL = `INSERT OR IGNORE INTO exclusions (rule_type, rule_value, reason) VALUES (?, ?, 'config')`

	for _, d := range domains {
		if _, err := s.db.ExecContext(ctx, insertSQL, "domain", strings.ToLower(d)); err != nil {
			return fmt.Errorf("add domain exclusion %q: %w", d, err)
		}
	}
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid exclusion pattern %q: %w", p, err)
		}
		if _, err := s.db.ExecContext(ctx, insertSQL, "regex", p); err != nil {
			return fmt.Errorf("add regex exclusion %q: %w", p, err)
		}
	}

	return s.loadExclusions()
}

// IsExcluded checks if a domain is blocked by exclusion rules. Subdomains of
// an excluded domain are excluded too.
func (s *SQLiteStore) IsExcluded(domain string) bool {
	domain = strings.ToLower(domain)
	for _, d := range s.domainExclusions {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	for _, re := range s.regexExclusions {
		if re.MatchString(domain) {
			return true
		}
	}
	return false
}

// generateID creates a visit ID: VIS- + 16 random hex chars.
func generateID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "VIS-" + hex.EncodeToString(b), nil
}

// extractDomain pulls the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// prepare fills in the derived fields of a visit. It reports false when the
// visit's domain is excluded.
func (s *SQLiteStore) prepare(v *Visit) (bool, error) {
	v.Domain = extractDomain(v.URL)
	if s.IsExcluded(v.Domain) {
		return false, nil
	}

	id, err := generateID()
	if err != nil {
		return false, fmt.Errorf("generate ID: %w", err)
	}
	v.ID = id

	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now()
	}
	if v.Source == "" {
		v.Source = "manual"
	}
	return true, nil
}

// AddVisit inserts a new visit. The ID and Domain fields are populated
// automatically. If the domain is excluded, the visit is silently skipped
// (ID remains empty, no error).
func (s *SQLiteStore) AddVisit(ctx context.Context, v *Visit) error {
	ok, err := s.prepare(v)
	if err != nil || !ok {
		return err
	}

	_, err = s.insertVisit.ExecContext(ctx,
		v.ID, v.Timestamp.UnixMicro(), v.URL, v.Title, v.Domain, v.Browser, v.Source,
	)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

// AddVisits inserts a batch of visits in one transaction and returns how
// many were stored after exclusions.
func (s *SQLiteStore) AddVisits(ctx context.Context, visits []Visit) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.insertVisit)
	added := 0
	for i := range visits {
		v := &visits[i]
		ok, err := s.prepare(v)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			v.ID, v.Timestamp.UnixMicro(), v.URL, v.Title, v.Domain, v.Browser, v.Source,
		); err != nil {
			return 0, fmt.Errorf("insert visit: %w", err)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// QueryOldest returns the most distant visit, or nil for an empty store.
func (s *SQLiteStore) QueryOldest(ctx context.Context) (*history.Visit, error) {
	v, err := scanVisit(s.queryOldest.QueryRowContext(ctx))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query oldest: %w", err)
	}
	rec := v.Record()
	return &rec, nil
}

// QueryRange returns visits in [beginMicros, endMicros), newest first.
func (s *SQLiteStore) QueryRange(ctx context.Context, beginMicros, endMicros int64, maxResults int) ([]history.Visit, error) {
	limit := maxResults
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.queryRange.QueryContext(ctx, beginMicros, endMicros, limit)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	visits, err := scanVisits(rows)
	if err != nil {
		return nil, err
	}

	out := make([]history.Visit, len(visits))
	for i, v := range visits {
		out[i] = v.Record()
	}
	return out, nil
}

// Remove deletes every visit to any of urls.
func (s *SQLiteStore) Remove(ctx context.Context, urls ...string) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(urls)), ",")
	args := make([]interface{}, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM visits WHERE url IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("remove visits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	s.audit(ctx, "remove", fmt.Sprintf("%d visits for %s", n, strings.Join(logging.RedactURLs(urls), ", ")))
	return n, nil
}

// SearchRange finds visits whose title or URL contains the query, within
// the optional time bounds. Results are capped at MaxSearchResults.
func (s *SQLiteStore) SearchRange(ctx context.Context, q SearchQuery) ([]Visit, error) {
	if q.Limit <= 0 || q.Limit > MaxSearchResults {
		q.Limit = MaxSearchResults
	}

	var clauses []string
	var args []interface{}

	if term := strings.TrimSpace(q.Query); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		clauses = append(clauses, `(lower(title) LIKE ? ESCAPE '\' OR lower(url) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if q.Domain != "" {
		clauses = append(clauses, "domain = ?")
		args = append(args, q.Domain)
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "ts_us >= ?")
		args = append(args, q.Since.UnixMicro())
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "ts_us < ?")
		args = append(args, q.Until.UnixMicro())
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	fullQuery := `SELECT id, ts_us, url, title, domain, browser, source FROM visits` +
		where + " ORDER BY ts_us DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, fullQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search visits: %w", err)
	}
	return scanVisits(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVisit(row rowScanner) (Visit, error) {
	var v Visit
	var tsUs int64
	if err := row.Scan(&v.ID, &tsUs, &v.URL, &v.Title, &v.Domain, &v.Browser, &v.Source); err != nil {
		return Visit{}, err
	}
	v.Timestamp = time.UnixMicro(tsUs)
	return v, nil
}

// scanVisits drains rows into a slice; it never returns nil on success.
func scanVisits(rows *sql.Rows) ([]Visit, error) {
	defer rows.Close()

	visits := []Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return visits, nil
}

// CountOlderThan returns how many visits PruneExpired would delete.
func (s *SQLiteStore) CountOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM visits WHERE ts_us < ?", olderThan.UnixMicro(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired: %w", err)
	}
	return n, nil
}

// PruneExpired deletes visits with timestamps before olderThan.
func (s *SQLiteStore) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM visits WHERE ts_us < ?", olderThan.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("prune visits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	s.audit(ctx, "prune", fmt.Sprintf("%d visits before %s", n, olderThan.UTC().Format(time.RFC3339)))
	return n, nil
}

// PurgeAll deletes all visits and import cursors. Exclusion rules survive.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM visits",
		"DELETE FROM import_cursors",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	s.audit(ctx, "purge", "all visits")
	return nil
}

// ImportCursor returns the last row already imported from source, or the
// zero position if the source was never imported.
func (s *SQLiteStore) ImportCursor(ctx context.Context, source string) (ImportPosition, error) {
	var pos ImportPosition
	err := s.db.QueryRowContext(ctx,
		"SELECT last_ts_us, last_row_id FROM import_cursors WHERE source = ?", source,
	).Scan(&pos.Micros, &pos.RowID)
	if err == sql.ErrNoRows {
		return ImportPosition{}, nil
	}
	if err != nil {
		return ImportPosition{}, fmt.Errorf("read import cursor: %w", err)
	}
	return pos, nil
}

// SetImportCursor records the last imported row for source.
func (s *SQLiteStore) SetImportCursor(ctx context.Context, source string, pos ImportPosition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_cursors (source, last_ts_us, last_row_id) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			last_ts_us = excluded.last_ts_us,
			last_row_id = excluded.last_row_id,
			updated_at = CURRENT_TIMESTAMP
	`, source, pos.Micros, pos.RowID)
	if err != nil {
		return fmt.Errorf("write import cursor: %w", err)
	}
	return nil
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT url) FROM visits",
	).Scan(&stats.TotalVisits, &stats.DistinctURLs)
	if err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM exclusions").Scan(&stats.ExclusionRules)
	if err != nil {
		return nil, fmt.Errorf("count exclusions: %w", err)
	}

	// Oldest and newest (handle empty DB)
	if stats.TotalVisits > 0 {
		var oldest, newest int64
		err = s.db.QueryRowContext(ctx, "SELECT MIN(ts_us), MAX(ts_us) FROM visits").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("visit time range: %w", err)
		}
		stats.OldestVisit = time.UnixMicro(oldest)
		stats.NewestVisit = time.UnixMicro(newest)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT domain, COUNT(*) AS cnt FROM visits GROUP BY domain ORDER BY cnt DESC, domain ASC LIMIT 10",
	)
	if err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dc DomainCount
		if err := rows.Scan(&dc.Domain, &dc.Count); err != nil {
			return nil, err
		}
		stats.TopDomains = append(stats.TopDomains, dc)
	}

	return stats, rows.Err()
}

// audit records a destructive action. Failures are ignored; the action
// itself already succeeded.
func (s *SQLiteStore) audit(ctx context.Context, action, detail string) {
	_, _ = s.db.ExecContext(ctx,
		"INSERT INTO audit_log (action, detail) VALUES (?, ?)", action, detail,
	)
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.insertVisit, s.queryRange, s.queryOldest}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
