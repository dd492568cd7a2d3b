package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/store/sqlite"
)

// Store reads the rule catalog and manages the per-account override layer.
// Rule rows themselves are written by catalog-management tooling; an
// evaluation run treats them as read-only.
type Store interface {
	ListRules(ctx context.Context, accountID string) ([]store.RuleRow, error)
	GetRule(ctx context.Context, id string) (*store.RuleRow, error)
	ListOverrides(ctx context.Context, accountID string) ([]store.RuleOverrideRow, error)
	ReplaceOverrides(ctx context.Context, accountID string, rows []store.RuleOverrideRow) error
	GetProfile(ctx context.Context, id string) (*store.ProfileRow, error)
	ListProfiles(ctx context.Context) ([]store.ProfileRow, error)
}

type catalogStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &catalogStore{db: db}, nil
}

// ListRules returns the rules visible to an account: global rows plus the
// account's own.
func (s *catalogStore) ListRules(ctx context.Context, accountID string) ([]store.RuleRow, error) {
	query := `
		SELECT id, name, description, resource_types, condition_type, condition_config,
		       severity, is_active, account_id, is_builtin
		FROM compliance_rules
		WHERE account_id IS NULL OR account_id = '' OR account_id = ?
		ORDER BY id
	`
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()
	return scanRuleRows(rows)
}

func (s *catalogStore) GetRule(ctx context.Context, id string) (*store.RuleRow, error) {
	query := `
		SELECT id, name, description, resource_types, condition_type, condition_config,
		       severity, is_active, account_id, is_builtin
		FROM compliance_rules
		WHERE id = ?
	`
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query rule: %w", err)
	}
	defer rows.Close()
	parsed, err := scanRuleRows(rows)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, nil
	}
	return &parsed[0], nil
}

func (s *catalogStore) ListOverrides(ctx context.Context, accountID string) ([]store.RuleOverrideRow, error) {
	query := `
		SELECT account_id, rule_id, is_active, applied_by_profile_id
		FROM account_rule_overrides
		WHERE account_id = ?
	`
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	var out []store.RuleOverrideRow
	for rows.Next() {
		var r store.RuleOverrideRow
		var profileID sql.NullString
		if err := rows.Scan(&r.AccountID, &r.RuleID, &r.IsActive, &profileID); err != nil {
			return nil, err
		}
		r.AppliedByProfileID = profileID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceOverrides swaps the account's whole override set in one step.
// Profile application is a full replace, not a merge.
func (s *catalogStore) ReplaceOverrides(ctx context.Context, accountID string, overrides []store.RuleOverrideRow) error {
	q := sqlite.Exec(ctx, s.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM account_rule_overrides WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("delete overrides: %w", err)
	}
	query := `
		INSERT INTO account_rule_overrides (account_id, rule_id, is_active, applied_by_profile_id)
		VALUES (?, ?, ?, ?)
	`
	for _, o := range overrides {
		if _, err := q.ExecContext(ctx, query, accountID, o.RuleID, o.IsActive, nullable(o.AppliedByProfileID)); err != nil {
			return fmt.Errorf("insert override: %w", err)
		}
	}
	return nil
}

func (s *catalogStore) GetProfile(ctx context.Context, id string) (*store.ProfileRow, error) {
	query := `SELECT id, name, description, condition_types FROM compliance_profiles WHERE id = ?`
	row := sqlite.Exec(ctx, s.db).QueryRowContext(ctx, query, id)

	var p store.ProfileRow
	var typesRaw []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &typesRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	if err := json.Unmarshal(typesRaw, &p.ConditionTypes); err != nil {
		return nil, fmt.Errorf("unmarshal condition types: %w", err)
	}
	return &p, nil
}

func (s *catalogStore) ListProfiles(ctx context.Context) ([]store.ProfileRow, error) {
	query := `SELECT id, name, description, condition_types FROM compliance_profiles ORDER BY name`
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []store.ProfileRow
	for rows.Next() {
		var p store.ProfileRow
		var typesRaw []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &typesRaw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(typesRaw, &p.ConditionTypes); err != nil {
			return nil, fmt.Errorf("unmarshal condition types: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanRuleRows(rows *sql.Rows) ([]store.RuleRow, error) {
	var out []store.RuleRow
	for rows.Next() {
		var r store.RuleRow
		var typesRaw, configRaw []byte
		var accountID sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &typesRaw, &r.ConditionType,
			&configRaw, &r.Severity, &r.IsActive, &accountID, &r.IsBuiltin); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(typesRaw, &r.ResourceTypes); err != nil {
			return nil, fmt.Errorf("unmarshal resource types: %w", err)
		}
		if len(configRaw) > 0 {
			if err := json.Unmarshal(configRaw, &r.ConditionConfig); err != nil {
				return nil, fmt.Errorf("unmarshal condition config: %w", err)
			}
		}
		r.AccountID = accountID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
