package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const resourcesSchema = `
	CREATE TABLE IF NOT EXISTS resources (
		id VARCHAR NOT NULL,
		account_id VARCHAR NOT NULL,
		type VARCHAR NOT NULL,
		label VARCHAR NOT NULL DEFAULT '',
		region VARCHAR NOT NULL DEFAULT '',
		plan_type VARCHAR NOT NULL DEFAULT '',
		monthly_cost DOUBLE NOT NULL DEFAULT 0,
		status VARCHAR NOT NULL DEFAULT '',
		specs JSON,
		PRIMARY KEY (account_id, id)
	);
`

const rulesSchema = `
	CREATE TABLE IF NOT EXISTS compliance_rules (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		description VARCHAR NOT NULL DEFAULT '',
		resource_types JSON NOT NULL,
		condition_type VARCHAR NOT NULL,
		condition_config JSON,
		severity VARCHAR NOT NULL DEFAULT 'warning',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		account_id VARCHAR,
		is_builtin BOOLEAN NOT NULL DEFAULT FALSE
	);
`

const overridesSchema = `
	CREATE TABLE IF NOT EXISTS account_rule_overrides (
		account_id VARCHAR NOT NULL,
		rule_id VARCHAR NOT NULL,
		is_active BOOLEAN NOT NULL,
		applied_by_profile_id VARCHAR,
		PRIMARY KEY (account_id, rule_id)
	);
`

const profilesSchema = `
	CREATE TABLE IF NOT EXISTS compliance_profiles (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		description VARCHAR NOT NULL DEFAULT '',
		condition_types JSON NOT NULL
	);
`

const findingsSchema = `
	CREATE TABLE IF NOT EXISTS compliance_findings (
		id VARCHAR PRIMARY KEY,
		rule_id VARCHAR NOT NULL,
		resource_id VARCHAR NOT NULL DEFAULT '',
		account_id VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		detail VARCHAR NOT NULL DEFAULT '',
		evaluated_at TIMESTAMP NOT NULL,
		acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
		acknowledged_at TIMESTAMP NULL,
		acknowledged_by VARCHAR NOT NULL DEFAULT '',
		acknowledged_note VARCHAR NOT NULL DEFAULT ''
	);
`

const notesSchema = `
	CREATE TABLE IF NOT EXISTS finding_notes (
		id VARCHAR PRIMARY KEY,
		finding_id VARCHAR NOT NULL,
		author VARCHAR NOT NULL DEFAULT '',
		text VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
`

const scoreHistorySchema = `
	CREATE TABLE IF NOT EXISTS score_history (
		account_id VARCHAR NOT NULL,
		run_at TIMESTAMP NOT NULL,
		compliant INTEGER NOT NULL,
		non_compliant INTEGER NOT NULL,
		not_applicable INTEGER NOT NULL,
		acknowledged INTEGER NOT NULL,
		score DOUBLE NULL,
		rule_breakdown JSON
	);
`

const resourceHistorySchema = `
	CREATE TABLE IF NOT EXISTS resource_history (
		account_id VARCHAR NOT NULL,
		resource_id VARCHAR NOT NULL,
		run_at TIMESTAMP NOT NULL,
		findings JSON NOT NULL
	);
`

var bootQueries = []string{
	resourcesSchema,
	rulesSchema,
	overridesSchema,
	profilesSchema,
	findingsSchema,
	notesSchema,
	scoreHistorySchema,
	resourceHistorySchema,
}

type Settings struct {
	DbPath string
}

// NewDB opens (or creates) the sqlite database and runs the boot schema.
// modernc.org/sqlite is pure Go, so the binary stays CGO-free.
func NewDB(settings Settings) (*sql.DB, error) {
	db, err := sql.Open("sqlite", settings.DbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL keeps readers usable while an evaluation run holds a write tx.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	for _, query := range bootQueries {
		if _, err := db.Exec(query); err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrap schema: %w", err)
		}
	}

	return db, nil
}
