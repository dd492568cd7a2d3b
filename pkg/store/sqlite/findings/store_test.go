package findings

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modelstore "github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/store/sqlite"
)

var findingColumnNames = []string{
	"id", "rule_id", "resource_id", "account_id", "status", "detail", "evaluated_at",
	"acknowledged", "acknowledged_at", "acknowledged_by", "acknowledged_note",
}

func newStoreWithMock(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewStore_NilDB(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}

func TestListByAccount(t *testing.T) {
	store, mock := newStoreWithMock(t)
	evaluatedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ackedAt := evaluatedAt.Add(-time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM compliance_findings").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows(findingColumnNames).
			AddRow("f1", "r1", "42", "acct-1", "non_compliant", "No firewall", evaluatedAt, true, ackedAt, "alice", "known").
			AddRow("f2", "r2", "", "acct-1", "compliant", "All users have TFA", evaluatedAt, false, nil, "", ""))

	rows, err := store.ListByAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "f1", rows[0].ID)
	assert.True(t, rows[0].Acknowledged)
	require.NotNil(t, rows[0].AcknowledgedAt)
	assert.True(t, rows[0].AcknowledgedAt.Equal(ackedAt))

	assert.Empty(t, rows[1].ResourceID)
	assert.Nil(t, rows[1].AcknowledgedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_MissingFindingReturnsNil(t *testing.T) {
	store, mock := newStoreWithMock(t)
	mock.ExpectQuery("SELECT (.+) FROM compliance_findings WHERE id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(findingColumnNames))

	row, err := store.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestReplaceForAccount_DeletesThenInserts(t *testing.T) {
	store, mock := newStoreWithMock(t)
	evaluatedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM compliance_findings").
		WithArgs("acct-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO compliance_findings").
		WithArgs("f1", "r1", "42", "acct-1", "compliant", "ok", evaluatedAt, false, nil, "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.ReplaceForAccount(context.Background(), "acct-1", []modelstore.FindingRow{{
		ID:          "f1",
		RuleID:      "r1",
		ResourceID:  "42",
		AccountID:   "acct-1",
		Status:      "compliant",
		Detail:      "ok",
		EvaluatedAt: evaluatedAt,
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForAccount_JoinsContextTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewStore(db)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM compliance_findings").
		WithArgs("acct-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	ctx := sqlite.WithTransaction(context.Background(), tx)

	require.NoError(t, store.ReplaceForAccount(ctx, "acct-1", nil))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAcknowledged(t *testing.T) {
	store, mock := newStoreWithMock(t)
	at := time.Date(2026, 8, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE compliance_findings").
		WithArgs(at, "alice", "accepted risk", "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SetAcknowledged(context.Background(), "f1", "alice", "accepted risk", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAcknowledged_MissingFinding(t *testing.T) {
	store, mock := newStoreWithMock(t)
	at := time.Now()

	mock.ExpectExec("UPDATE compliance_findings").
		WithArgs(at, "alice", "", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetAcknowledged(context.Background(), "ghost", "alice", "", at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestClearAcknowledged(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectExec("UPDATE compliance_findings").
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.ClearAcknowledged(context.Background(), "f1"))
}

func TestDeleteNote_MissingNote(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectExec("DELETE FROM finding_notes").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Error(t, store.DeleteNote(context.Background(), "ghost"))
}

func TestListNotes(t *testing.T) {
	store, mock := newStoreWithMock(t)
	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM finding_notes").
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "finding_id", "author", "text", "created_at"}).
			AddRow("n1", "f1", "bob", "tracking in backlog", createdAt))

	notes, err := store.ListNotes(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "bob", notes[0].Author)
}
