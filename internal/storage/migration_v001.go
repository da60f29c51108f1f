package storage

import "database/sql"

// migrateV001 creates the visit schema: tables, indexes, and default
// exclusion rules. Every statement uses IF NOT EXISTS for
// idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS visits (
			id         TEXT PRIMARY KEY,
			ts_us      INTEGER NOT NULL,
			url        TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			domain     TEXT NOT NULL DEFAULT '',
			browser    TEXT NOT NULL DEFAULT '',
			source     TEXT NOT NULL DEFAULT 'manual',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS exclusions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			rule_type  TEXT NOT NULL CHECK (rule_type IN ('domain', 'regex')),
			rule_value TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			is_default BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(rule_type, rule_value)
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			ts     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_visits_ts        ON visits(ts_us)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_url       ON visits(url)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_domain    ON visits(domain)`,
		`CREATE INDEX IF NOT EXISTS idx_exclusions_rule  ON exclusions(rule_type, rule_value)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_ts     ON audit_log(ts)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	// ── Default exclusion rules ────────────────────────────────
	if err := seedDefaultExclusions(tx); err != nil {
		return err
	}

	return nil
}

// migrateV002 adds per-source import cursors so repeated imports only pick
// up new visits.
func migrateV002(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS import_cursors (
		source     TEXT PRIMARY KEY,
		last_ts_us INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// migrateV003 records the source row id next to the cursor timestamp.
// Cursors written before keep their meaning: every row at last_ts_us was
// already imported.
func migrateV003(tx *sql.Tx) error {
	_, err := tx.Exec(`ALTER TABLE import_cursors
		ADD COLUMN last_row_id INTEGER NOT NULL DEFAULT 9223372036854775807`)
	return err
}

// seedDefaultExclusions inserts the curated denylist. Uses INSERT OR IGNORE
// so re-running is safe.
func seedDefaultExclusions(tx *sql.Tx) error {
	type rule struct {
		RuleType  string
		RuleValue string
		Reason    string
	}

	defaults := []rule{
		// Banking & Financial
		{"domain", "chase.com", "Banking - financial privacy"},
		{"domain", "bankofamerica.com", "Banking - financial privacy"},
		{"domain", "wellsfargo.com", "Banking - financial privacy"},
		{"domain", "citi.com", "Banking - financial privacy"},
		{"domain", "capitalone.com", "Banking - financial privacy"},
		{"domain", "usbank.com", "Banking - financial privacy"},
		{"domain", "schwab.com", "Banking - financial privacy"},
		{"domain", "fidelity.com", "Banking - financial privacy"},
		{"domain", "vanguard.com", "Banking - financial privacy"},
		{"domain", "paypal.com", "Payment - financial privacy"},
		{"domain", "venmo.com", "Payment - financial privacy"},
		// Password Managers
		{"domain", "1password.com", "Password manager - credential privacy"},
		{"domain", "bitwarden.com", "Password manager - credential privacy"},
		{"domain", "lastpass.com", "Password manager - credential privacy"},
		{"domain", "dashlane.com", "Password manager - credential privacy"},
		// Auth Providers
		{"domain", "accounts.google.com", "Auth provider - credential privacy"},
		{"domain", "login.microsoftonline.com", "Auth provider - credential privacy"},
		{"domain", "auth0.com", "Auth provider - credential privacy"},
		{"domain", "okta.com", "Auth provider - credential privacy"},
		// Healthcare
		{"domain", "mychart.com", "Healthcare - HIPAA privacy"},
		{"domain", "patient.myuhc.com", "Healthcare - HIPAA privacy"},
		// Tax / Government
		{"domain", "irs.gov", "Tax - financial privacy"},
		{"domain", "turbotax.intuit.com", "Tax - financial privacy"},
		// Adult content (regex)
		{"regex", `.*\.xxx$`, "Adult content exclusion"},
		{"regex", `.*pornhub\.com$`, "Adult content exclusion"},
	}

	const insertSQL = `INSERT OR IGNORE INTO exclusions (rule_type, rule_value, reason, is_default) VALUES (?, ?, ?, 1)`

	for _, r := range defaults {
		if _, err := tx.Exec(insertSQL, r.RuleType, r.RuleValue, r.Reason); err != nil {
			return err
		}
	}

	return nil
}
