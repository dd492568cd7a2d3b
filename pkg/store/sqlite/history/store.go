package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/store/sqlite"
)

// Store appends and reads the two history streams a run produces: one score
// row per run and one denormalized row per (resource, run). Both are
// append-only.
type Store interface {
	AddScoreEntry(ctx context.Context, entry store.ScoreHistoryRow) error
	ListScoreHistory(ctx context.Context, accountID string, limit int) ([]store.ScoreHistoryRow, error)
	AddResourceEntries(ctx context.Context, entries []store.ResourceHistoryRow) error
	ListResourceHistory(ctx context.Context, accountID, resourceID string, limit int) ([]store.ResourceHistoryRow, error)
}

type historyStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &historyStore{db: db}, nil
}

func (s *historyStore) AddScoreEntry(ctx context.Context, entry store.ScoreHistoryRow) error {
	breakdown, err := json.Marshal(entry.RuleBreakdown)
	if err != nil {
		return fmt.Errorf("marshal rule breakdown: %w", err)
	}
	var score any
	if entry.Score != nil {
		score = *entry.Score
	}
	query := `
		INSERT INTO score_history (
			account_id, run_at, compliant, non_compliant, not_applicable,
			acknowledged, score, rule_breakdown
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = sqlite.Exec(ctx, s.db).ExecContext(ctx, query,
		entry.AccountID, entry.RunAt, entry.Compliant, entry.NonCompliant,
		entry.NotApplicable, entry.Acknowledged, score, breakdown)
	if err != nil {
		return fmt.Errorf("insert score entry: %w", err)
	}
	return nil
}

func (s *historyStore) ListScoreHistory(ctx context.Context, accountID string, limit int) ([]store.ScoreHistoryRow, error) {
	query := `
		SELECT account_id, run_at, compliant, non_compliant, not_applicable,
		       acknowledged, score, rule_breakdown
		FROM score_history
		WHERE account_id = ?
		ORDER BY run_at DESC
		LIMIT ?
	`
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	var out []store.ScoreHistoryRow
	for rows.Next() {
		var e store.ScoreHistoryRow
		var score sql.NullFloat64
		var breakdown []byte
		if err := rows.Scan(&e.AccountID, &e.RunAt, &e.Compliant, &e.NonCompliant,
			&e.NotApplicable, &e.Acknowledged, &score, &breakdown); err != nil {
			return nil, err
		}
		if score.Valid {
			v := score.Float64
			e.Score = &v
		}
		if len(breakdown) > 0 {
			if err := json.Unmarshal(breakdown, &e.RuleBreakdown); err != nil {
				return nil, fmt.Errorf("unmarshal rule breakdown: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *historyStore) AddResourceEntries(ctx context.Context, entries []store.ResourceHistoryRow) error {
	if len(entries) == 0 {
		return nil
	}
	query := `
		INSERT INTO resource_history (account_id, resource_id, run_at, findings)
		VALUES (?, ?, ?, ?)
	`
	q := sqlite.Exec(ctx, s.db)
	for _, e := range entries {
		findings, err := json.Marshal(e.Findings)
		if err != nil {
			return fmt.Errorf("marshal findings: %w", err)
		}
		if _, err := q.ExecContext(ctx, query, e.AccountID, e.ResourceID, e.RunAt, findings); err != nil {
			return fmt.Errorf("insert resource history: %w", err)
		}
	}
	return nil
}

func (s *historyStore) ListResourceHistory(ctx context.Context, accountID, resourceID string, limit int) ([]store.ResourceHistoryRow, error) {
	query := `
		SELECT account_id, resource_id, run_at, findings
		FROM resource_history
		WHERE account_id = ? AND resource_id = ?
		ORDER BY run_at DESC
		LIMIT ?
	`
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, accountID, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query resource history: %w", err)
	}
	defer rows.Close()

	var out []store.ResourceHistoryRow
	for rows.Next() {
		var e store.ResourceHistoryRow
		var findings []byte
		if err := rows.Scan(&e.AccountID, &e.ResourceID, &e.RunAt, &findings); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(findings, &e.Findings); err != nil {
			return nil, fmt.Errorf("unmarshal findings: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
