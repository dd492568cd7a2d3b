package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	modelstore "github.com/de-tools/cloud-warden/pkg/models/store"
)

type mockFindingStore struct {
	mock.Mock
}

func (m *mockFindingStore) ListByAccount(ctx context.Context, accountID string) ([]modelstore.FindingRow, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.FindingRow), args.Error(1)
}

func (m *mockFindingStore) Get(ctx context.Context, id string) (*modelstore.FindingRow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*modelstore.FindingRow), args.Error(1)
}

func (m *mockFindingStore) ListAcknowledged(ctx context.Context, accountID string) ([]modelstore.FindingRow, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.FindingRow), args.Error(1)
}

func (m *mockFindingStore) ReplaceForAccount(ctx context.Context, accountID string, rows []modelstore.FindingRow) error {
	return m.Called(ctx, accountID, rows).Error(0)
}

func (m *mockFindingStore) SetAcknowledged(ctx context.Context, id, by, note string, at time.Time) error {
	return m.Called(ctx, id, by, note, at).Error(0)
}

func (m *mockFindingStore) ClearAcknowledged(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockFindingStore) AddNote(ctx context.Context, note modelstore.FindingNoteRow) error {
	return m.Called(ctx, note).Error(0)
}

func (m *mockFindingStore) ListNotes(ctx context.Context, findingID string) ([]modelstore.FindingNoteRow, error) {
	args := m.Called(ctx, findingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.FindingNoteRow), args.Error(1)
}

func (m *mockFindingStore) DeleteNote(ctx context.Context, noteID string) error {
	return m.Called(ctx, noteID).Error(0)
}

type mockHistoryStore struct {
	mock.Mock
}

func (m *mockHistoryStore) AddScoreEntry(ctx context.Context, entry modelstore.ScoreHistoryRow) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockHistoryStore) ListScoreHistory(ctx context.Context, accountID string, limit int) ([]modelstore.ScoreHistoryRow, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.ScoreHistoryRow), args.Error(1)
}

func (m *mockHistoryStore) AddResourceEntries(ctx context.Context, entries []modelstore.ResourceHistoryRow) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *mockHistoryStore) ListResourceHistory(ctx context.Context, accountID, resourceID string, limit int) ([]modelstore.ResourceHistoryRow, error) {
	args := m.Called(ctx, accountID, resourceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]modelstore.ResourceHistoryRow), args.Error(1)
}

func TestGetFinding(t *testing.T) {
	findings := &mockFindingStore{}
	findings.On("Get", mock.Anything, "f1").Return(&modelstore.FindingRow{
		ID:     "f1",
		RuleID: "r1",
		Status: string(domain.StatusNonCompliant),
	}, nil)
	findings.On("Get", mock.Anything, "ghost").Return(nil, nil)

	svc := NewService(findings, &mockHistoryStore{}, 0)

	f, err := svc.GetFinding(context.Background(), "f1")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, domain.StatusNonCompliant, f.Status)

	f, err = svc.GetFinding(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestAcknowledge(t *testing.T) {
	findings := &mockFindingStore{}
	findings.On("SetAcknowledged", mock.Anything, "f1", "alice", "known tradeoff", mock.AnythingOfType("time.Time")).Return(nil)

	svc := NewService(findings, &mockHistoryStore{}, 0)
	require.NoError(t, svc.Acknowledge(context.Background(), "f1", "alice", "known tradeoff"))
	findings.AssertExpectations(t)
}

func TestAcknowledge_MissingFinding(t *testing.T) {
	findings := &mockFindingStore{}
	findings.On("SetAcknowledged", mock.Anything, "ghost", "alice", "", mock.Anything).Return(errors.New("no row updated"))

	svc := NewService(findings, &mockHistoryStore{}, 0)
	assert.Error(t, svc.Acknowledge(context.Background(), "ghost", "alice", ""))
}

func TestAddNote(t *testing.T) {
	findings := &mockFindingStore{}
	findings.On("AddNote", mock.Anything, mock.MatchedBy(func(row modelstore.FindingNoteRow) bool {
		return row.ID != "" && row.FindingID == "f1" && row.Author == "bob" && row.Text == "tracking in backlog"
	})).Return(nil)

	svc := NewService(findings, &mockHistoryStore{}, 0)
	note, err := svc.AddNote(context.Background(), "f1", "bob", "tracking in backlog")
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.False(t, note.CreatedAt.IsZero())
}

func TestAddNote_RequiresText(t *testing.T) {
	findings := &mockFindingStore{}
	svc := NewService(findings, &mockHistoryStore{}, 0)

	_, err := svc.AddNote(context.Background(), "f1", "bob", "")
	require.Error(t, err)
	findings.AssertNotCalled(t, "AddNote", mock.Anything, mock.Anything)
}

func TestHistoryLimitFallback(t *testing.T) {
	history := &mockHistoryStore{}
	history.On("ListScoreHistory", mock.Anything, "acct-1", 25).Return([]modelstore.ScoreHistoryRow{}, nil)
	history.On("ListResourceHistory", mock.Anything, "acct-1", "42", 7).Return([]modelstore.ResourceHistoryRow{}, nil)

	svc := NewService(&mockFindingStore{}, history, 25)

	_, err := svc.ScoreHistory(context.Background(), "acct-1", 0)
	require.NoError(t, err)
	_, err = svc.ResourceHistory(context.Background(), "acct-1", "42", 7)
	require.NoError(t, err)
	history.AssertExpectations(t)
}

func TestScoreHistory_ReturnsDomainEntries(t *testing.T) {
	history := &mockHistoryStore{}
	score := 66.67
	runAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	history.On("ListScoreHistory", mock.Anything, "acct-1", 100).Return([]modelstore.ScoreHistoryRow{
		{
			AccountID:    "acct-1",
			RunAt:        runAt,
			Compliant:    2,
			NonCompliant: 1,
			Acknowledged: 1,
			Score:        &score,
			RuleBreakdown: []modelstore.RuleScoreEntry{
				{RuleID: "r1", RuleName: "Firewall attached", Compliant: 2, NonCompliant: 1},
			},
		},
	}, nil)

	svc := NewService(&mockFindingStore{}, history, 0)

	entries, err := svc.ScoreHistory(context.Background(), "acct-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "acct-1", entries[0].AccountID)
	assert.Equal(t, runAt, entries[0].RunAt)
	assert.Equal(t, 1, entries[0].Acknowledged)
	require.NotNil(t, entries[0].Score)
	assert.InDelta(t, 66.67, *entries[0].Score, 0.001)
	require.Len(t, entries[0].RuleBreakdown, 1)
	assert.Equal(t, "Firewall attached", entries[0].RuleBreakdown[0].RuleName)
}

func TestResourceHistory_ReturnsDomainEntries(t *testing.T) {
	history := &mockHistoryStore{}
	runAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	history.On("ListResourceHistory", mock.Anything, "acct-1", "42", 100).Return([]modelstore.ResourceHistoryRow{
		{
			AccountID:  "acct-1",
			ResourceID: "42",
			RunAt:      runAt,
			Findings: []modelstore.HistoricalFindingEntry{
				{
					RuleID:   "r1",
					RuleName: "Firewall attached",
					Severity: "critical",
					Status:   "non_compliant",
					Detail:   "No firewall attached",
				},
			},
		},
	}, nil)

	svc := NewService(&mockFindingStore{}, history, 0)

	entries, err := svc.ResourceHistory(context.Background(), "acct-1", "42", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Findings, 1)

	assert.Equal(t, domain.SeverityCritical, entries[0].Findings[0].Severity)
	assert.Equal(t, domain.StatusNonCompliant, entries[0].Findings[0].Status)
	assert.Equal(t, "No firewall attached", entries[0].Findings[0].Detail)
}
