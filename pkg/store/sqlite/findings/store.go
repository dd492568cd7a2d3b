package findings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/store/sqlite"
)

// Store persists findings, acknowledgements and the per-finding note thread.
// ReplaceForAccount joins the transaction carried on the context so a run's
// delete+insert lands as one atomic swap.
type Store interface {
	ListByAccount(ctx context.Context, accountID string) ([]store.FindingRow, error)
	Get(ctx context.Context, id string) (*store.FindingRow, error)
	ListAcknowledged(ctx context.Context, accountID string) ([]store.FindingRow, error)
	ReplaceForAccount(ctx context.Context, accountID string, rows []store.FindingRow) error
	SetAcknowledged(ctx context.Context, id, by, note string, at time.Time) error
	ClearAcknowledged(ctx context.Context, id string) error
	AddNote(ctx context.Context, note store.FindingNoteRow) error
	ListNotes(ctx context.Context, findingID string) ([]store.FindingNoteRow, error)
	DeleteNote(ctx context.Context, noteID string) error
}

type findingStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &findingStore{db: db}, nil
}

const findingColumns = `id, rule_id, resource_id, account_id, status, detail, evaluated_at,
	acknowledged, acknowledged_at, acknowledged_by, acknowledged_note`

func (s *findingStore) ListByAccount(ctx context.Context, accountID string) ([]store.FindingRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM compliance_findings
		WHERE account_id = ?
		ORDER BY rule_id, resource_id
	`, findingColumns)
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()
	return scanFindingRows(rows)
}

func (s *findingStore) Get(ctx context.Context, id string) (*store.FindingRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM compliance_findings WHERE id = ?`, findingColumns)
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query finding: %w", err)
	}
	defer rows.Close()
	parsed, err := scanFindingRows(rows)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, nil
	}
	return &parsed[0], nil
}

func (s *findingStore) ListAcknowledged(ctx context.Context, accountID string) ([]store.FindingRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM compliance_findings
		WHERE account_id = ? AND acknowledged = TRUE
	`, findingColumns)
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query acknowledged findings: %w", err)
	}
	defer rows.Close()
	return scanFindingRows(rows)
}

func (s *findingStore) ReplaceForAccount(ctx context.Context, accountID string, findings []store.FindingRow) error {
	q := sqlite.Exec(ctx, s.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM compliance_findings WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("delete findings: %w", err)
	}
	query := `
		INSERT INTO compliance_findings (
			id, rule_id, resource_id, account_id, status, detail, evaluated_at,
			acknowledged, acknowledged_at, acknowledged_by, acknowledged_note
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, f := range findings {
		var ackAt any
		if f.AcknowledgedAt != nil {
			ackAt = *f.AcknowledgedAt
		}
		_, err := q.ExecContext(ctx, query,
			f.ID, f.RuleID, f.ResourceID, accountID, f.Status, f.Detail, f.EvaluatedAt,
			f.Acknowledged, ackAt, f.AcknowledgedBy, f.AcknowledgedNote,
		)
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}
	return nil
}

func (s *findingStore) SetAcknowledged(ctx context.Context, id, by, note string, at time.Time) error {
	query := `
		UPDATE compliance_findings
		SET acknowledged = TRUE, acknowledged_at = ?, acknowledged_by = ?, acknowledged_note = ?
		WHERE id = ?
	`
	res, err := sqlite.Exec(ctx, s.db).ExecContext(ctx, query, at, by, note, id)
	if err != nil {
		return fmt.Errorf("acknowledge finding: %w", err)
	}
	return requireRow(res, id)
}

func (s *findingStore) ClearAcknowledged(ctx context.Context, id string) error {
	query := `
		UPDATE compliance_findings
		SET acknowledged = FALSE, acknowledged_at = NULL, acknowledged_by = '', acknowledged_note = ''
		WHERE id = ?
	`
	res, err := sqlite.Exec(ctx, s.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("unacknowledge finding: %w", err)
	}
	return requireRow(res, id)
}

func (s *findingStore) AddNote(ctx context.Context, note store.FindingNoteRow) error {
	query := `INSERT INTO finding_notes (id, finding_id, author, text, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := sqlite.Exec(ctx, s.db).ExecContext(ctx, query,
		note.ID, note.FindingID, note.Author, note.Text, note.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *findingStore) ListNotes(ctx context.Context, findingID string) ([]store.FindingNoteRow, error) {
	query := `
		SELECT id, finding_id, author, text, created_at
		FROM finding_notes
		WHERE finding_id = ?
		ORDER BY created_at
	`
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, findingID)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var out []store.FindingNoteRow
	for rows.Next() {
		var n store.FindingNoteRow
		if err := rows.Scan(&n.ID, &n.FindingID, &n.Author, &n.Text, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *findingStore) DeleteNote(ctx context.Context, noteID string) error {
	res, err := sqlite.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM finding_notes WHERE id = ?`, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return requireRow(res, noteID)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no row with id %s", id)
	}
	return nil
}

func scanFindingRows(rows *sql.Rows) ([]store.FindingRow, error) {
	var out []store.FindingRow
	for rows.Next() {
		var f store.FindingRow
		var ackAt sql.NullTime
		if err := rows.Scan(&f.ID, &f.RuleID, &f.ResourceID, &f.AccountID, &f.Status,
			&f.Detail, &f.EvaluatedAt, &f.Acknowledged, &ackAt,
			&f.AcknowledgedBy, &f.AcknowledgedNote); err != nil {
			return nil, err
		}
		if ackAt.Valid {
			t := ackAt.Time
			f.AcknowledgedAt = &t
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
