package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	modelstore "github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/services/catalog"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) EffectiveRules(ctx context.Context, accountID string) ([]domain.Rule, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rule), args.Error(1)
}

func (m *mockCatalog) ListRules(ctx context.Context, accountID string) ([]catalog.RuleWithActivation, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.RuleWithActivation), args.Error(1)
}

func (m *mockCatalog) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Profile), args.Error(1)
}

func (m *mockCatalog) ApplyProfile(ctx context.Context, accountID, profileID string) (*catalog.ProfileApplication, error) {
	args := m.Called(ctx, accountID, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProfileApplication), args.Error(1)
}

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) ListResources(ctx context.Context, accountID string) ([]modelstore.ResourceRow, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.ResourceRow), args.Error(1)
}

type mockFindings struct {
	mock.Mock
}

func (m *mockFindings) ListByAccount(ctx context.Context, accountID string) ([]modelstore.FindingRow, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.FindingRow), args.Error(1)
}

func (m *mockFindings) Get(ctx context.Context, id string) (*modelstore.FindingRow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*modelstore.FindingRow), args.Error(1)
}

func (m *mockFindings) ListAcknowledged(ctx context.Context, accountID string) ([]modelstore.FindingRow, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.FindingRow), args.Error(1)
}

func (m *mockFindings) ReplaceForAccount(ctx context.Context, accountID string, rows []modelstore.FindingRow) error {
	return m.Called(ctx, accountID, rows).Error(0)
}

func (m *mockFindings) SetAcknowledged(ctx context.Context, id, by, note string, at time.Time) error {
	return m.Called(ctx, id, by, note, at).Error(0)
}

func (m *mockFindings) ClearAcknowledged(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockFindings) AddNote(ctx context.Context, note modelstore.FindingNoteRow) error {
	return m.Called(ctx, note).Error(0)
}

func (m *mockFindings) ListNotes(ctx context.Context, findingID string) ([]modelstore.FindingNoteRow, error) {
	args := m.Called(ctx, findingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.FindingNoteRow), args.Error(1)
}

func (m *mockFindings) DeleteNote(ctx context.Context, noteID string) error {
	return m.Called(ctx, noteID).Error(0)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) AddScoreEntry(ctx context.Context, entry modelstore.ScoreHistoryRow) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockHistory) ListScoreHistory(ctx context.Context, accountID string, limit int) ([]modelstore.ScoreHistoryRow, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.ScoreHistoryRow), args.Error(1)
}

func (m *mockHistory) AddResourceEntries(ctx context.Context, entries []modelstore.ResourceHistoryRow) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *mockHistory) ListResourceHistory(ctx context.Context, accountID, resourceID string, limit int) ([]modelstore.ResourceHistoryRow, error) {
	args := m.Called(ctx, accountID, resourceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.ResourceHistoryRow), args.Error(1)
}

type evaluatorFixture struct {
	evaluator *Evaluator
	catalog   *mockCatalog
	inventory *mockInventory
	findings  *mockFindings
	history   *mockHistory
	sqlMock   sqlmock.Sqlmock
}

func newEvaluatorFixture(t *testing.T) *evaluatorFixture {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &evaluatorFixture{
		catalog:   &mockCatalog{},
		inventory: &mockInventory{},
		findings:  &mockFindings{},
		history:   &mockHistory{},
		sqlMock:   sqlMock,
	}
	f.evaluator = NewEvaluator(db, f.catalog, f.inventory, f.findings, f.history, nil, DefaultSettings())
	return f
}

func lockRule() domain.Rule {
	return domain.Rule{
		ID:            "rule-lock",
		Name:          "Instances carry a deletion lock",
		ResourceTypes: []string{domain.ResourceTypeInstance},
		ConditionType: domain.ConditionInstanceLock,
		Severity:      domain.SeverityWarning,
		IsActive:      true,
	}
}

func instanceRow(id string, locked bool) modelstore.ResourceRow {
	return modelstore.ResourceRow{
		ID:        id,
		AccountID: "acct-1",
		Type:      domain.ResourceTypeInstance,
		Label:     "web-" + id,
		Specs:     map[string]any{"lock_enabled": locked},
	}
}

func TestEvaluatorRun(t *testing.T) {
	f := newEvaluatorFixture(t)

	f.catalog.On("EffectiveRules", mock.Anything, "acct-1").Return([]domain.Rule{lockRule()}, nil)
	f.inventory.On("ListResources", mock.Anything, "acct-1").Return([]modelstore.ResourceRow{
		instanceRow("1", true),
		instanceRow("2", false),
	}, nil)
	f.findings.On("ListAcknowledged", mock.Anything, "acct-1").Return([]modelstore.FindingRow{}, nil)

	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()
	f.findings.On("ReplaceForAccount", mock.Anything, "acct-1", mock.Anything).Return(nil)
	f.history.On("AddScoreEntry", mock.Anything, mock.Anything).Return(nil)
	f.history.On("AddResourceEntries", mock.Anything, mock.Anything).Return(nil)

	summary, err := f.evaluator.Run(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", summary.AccountID)
	assert.Equal(t, 2, summary.FindingCount)
	assert.Equal(t, 1, summary.Compliant)
	assert.Equal(t, 1, summary.NonCompliant)
	require.NotNil(t, summary.Score)
	assert.Equal(t, 50.0, *summary.Score)

	f.findings.AssertCalled(t, "ReplaceForAccount", mock.Anything, "acct-1", mock.MatchedBy(func(rows []modelstore.FindingRow) bool {
		if len(rows) != 2 {
			return false
		}
		for _, row := range rows {
			if row.ID == "" || row.AccountID != "acct-1" || row.EvaluatedAt.IsZero() {
				return false
			}
		}
		return true
	}))
	assert.NoError(t, f.sqlMock.ExpectationsWereMet())
}

func TestEvaluatorRun_AcknowledgementsSurviveReplacement(t *testing.T) {
	f := newEvaluatorFixture(t)
	ackedAt := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	f.catalog.On("EffectiveRules", mock.Anything, "acct-1").Return([]domain.Rule{lockRule()}, nil)
	f.inventory.On("ListResources", mock.Anything, "acct-1").Return([]modelstore.ResourceRow{
		instanceRow("2", false),
	}, nil)
	// The prior run acknowledged this same (rule, resource) violation.
	f.findings.On("ListAcknowledged", mock.Anything, "acct-1").Return([]modelstore.FindingRow{{
		ID:             "old-finding",
		RuleID:         "rule-lock",
		ResourceID:     "2",
		AccountID:      "acct-1",
		Status:         string(domain.StatusNonCompliant),
		Acknowledged:   true,
		AcknowledgedAt: &ackedAt,
		AcknowledgedBy: "alice",
	}}, nil)

	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()
	f.findings.On("ReplaceForAccount", mock.Anything, "acct-1", mock.Anything).Return(nil)
	f.history.On("AddScoreEntry", mock.Anything, mock.Anything).Return(nil)
	f.history.On("AddResourceEntries", mock.Anything, mock.Anything).Return(nil)

	summary, err := f.evaluator.Run(context.Background(), "acct-1")
	require.NoError(t, err)

	// The acknowledged finding leaves the score and lands re-stamped.
	assert.Equal(t, 1, summary.Acknowledged)
	assert.Equal(t, 0, summary.NonCompliant)
	assert.Nil(t, summary.Score)

	f.findings.AssertCalled(t, "ReplaceForAccount", mock.Anything, "acct-1", mock.MatchedBy(func(rows []modelstore.FindingRow) bool {
		return len(rows) == 1 &&
			rows[0].Acknowledged &&
			rows[0].AcknowledgedBy == "alice" &&
			rows[0].AcknowledgedAt != nil &&
			rows[0].AcknowledgedAt.Equal(ackedAt) &&
			rows[0].ID != "old-finding"
	}))
}

func TestEvaluatorRun_CatalogFailureAbortsBeforePersist(t *testing.T) {
	f := newEvaluatorFixture(t)
	f.catalog.On("EffectiveRules", mock.Anything, "acct-1").Return(nil, errors.New("catalog unavailable"))

	_, err := f.evaluator.Run(context.Background(), "acct-1")
	require.Error(t, err)
	f.findings.AssertNotCalled(t, "ReplaceForAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluatorRun_StoreFailureRollsBack(t *testing.T) {
	f := newEvaluatorFixture(t)

	f.catalog.On("EffectiveRules", mock.Anything, "acct-1").Return([]domain.Rule{lockRule()}, nil)
	f.inventory.On("ListResources", mock.Anything, "acct-1").Return([]modelstore.ResourceRow{instanceRow("1", true)}, nil)
	f.findings.On("ListAcknowledged", mock.Anything, "acct-1").Return([]modelstore.FindingRow{}, nil)

	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectRollback()
	f.findings.On("ReplaceForAccount", mock.Anything, "acct-1", mock.Anything).Return(errors.New("disk full"))

	_, err := f.evaluator.Run(context.Background(), "acct-1")
	require.Error(t, err)
	f.history.AssertNotCalled(t, "AddScoreEntry", mock.Anything, mock.Anything)
	assert.NoError(t, f.sqlMock.ExpectationsWereMet())
}

func TestEvaluatorRun_RejectsOverlappingRuns(t *testing.T) {
	f := newEvaluatorFixture(t)

	require.NoError(t, f.evaluator.acquire("acct-1"))
	_, err := f.evaluator.Run(context.Background(), "acct-1")
	assert.ErrorIs(t, err, ErrRunInProgress)

	// A different account is unaffected, and release frees the slot.
	require.NoError(t, f.evaluator.acquire("acct-2"))
	f.evaluator.release("acct-2")
	f.evaluator.release("acct-1")
	require.NoError(t, f.evaluator.acquire("acct-1"))
}
