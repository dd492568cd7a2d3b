package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/store/sqlite"
)

// Store reads the resource inventory written by the external sync process.
// This core never writes resource rows.
type Store interface {
	ListResources(ctx context.Context, accountID string) ([]store.ResourceRow, error)
}

type inventoryStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &inventoryStore{db: db}, nil
}

func (s *inventoryStore) ListResources(ctx context.Context, accountID string) ([]store.ResourceRow, error) {
	query := `
		SELECT id, account_id, type, label, region, plan_type, monthly_cost, status, specs
		FROM resources
		WHERE account_id = ?
		ORDER BY type, id
	`
	rows, err := sqlite.Exec(ctx, s.db).QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	var out []store.ResourceRow
	for rows.Next() {
		var r store.ResourceRow
		var specsRaw []byte
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Type, &r.Label, &r.Region,
			&r.PlanType, &r.MonthlyCost, &r.Status, &specsRaw); err != nil {
			return nil, err
		}
		if len(specsRaw) > 0 {
			if err := json.Unmarshal(specsRaw, &r.Specs); err != nil {
				return nil, fmt.Errorf("unmarshal specs for %s: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
