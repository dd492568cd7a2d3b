package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/de-tools/cloud-warden/pkg/adapters"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	modelstore "github.com/de-tools/cloud-warden/pkg/models/store"
	findingstore "github.com/de-tools/cloud-warden/pkg/store/sqlite/findings"
	historystore "github.com/de-tools/cloud-warden/pkg/store/sqlite/history"
)

// Service is the read/mutate surface over persisted findings: listing,
// acknowledgement, the note thread and the two history streams.
// Acknowledgement mutations are independent of evaluation runs.
type Service interface {
	ListFindings(ctx context.Context, accountID string) ([]domain.Finding, error)
	GetFinding(ctx context.Context, id string) (*domain.Finding, error)
	Acknowledge(ctx context.Context, findingID, author, note string) error
	Unacknowledge(ctx context.Context, findingID string) error
	AddNote(ctx context.Context, findingID, author, text string) (*domain.FindingNote, error)
	ListNotes(ctx context.Context, findingID string) ([]domain.FindingNote, error)
	DeleteNote(ctx context.Context, noteID string) error
	ScoreHistory(ctx context.Context, accountID string, limit int) ([]domain.ScoreHistoryEntry, error)
	ResourceHistory(ctx context.Context, accountID, resourceID string, limit int) ([]domain.ResourceHistoryEntry, error)
}

const defaultHistoryLimit = 100

type service struct {
	findings     findingstore.Store
	history      historystore.Store
	historyLimit int
}

func NewService(findings findingstore.Store, history historystore.Store, historyLimit int) Service {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &service{
		findings:     findings,
		history:      history,
		historyLimit: historyLimit,
	}
}

func (s *service) ListFindings(ctx context.Context, accountID string) ([]domain.Finding, error) {
	rows, err := s.findings.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	out := make([]domain.Finding, 0, len(rows))
	for _, row := range rows {
		out = append(out, adapters.MapFindingStoreToDomain(row))
	}
	return out, nil
}

func (s *service) GetFinding(ctx context.Context, id string) (*domain.Finding, error) {
	row, err := s.findings.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get finding: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	f := adapters.MapFindingStoreToDomain(*row)
	return &f, nil
}

func (s *service) Acknowledge(ctx context.Context, findingID, author, note string) error {
	if err := s.findings.SetAcknowledged(ctx, findingID, author, note, time.Now().UTC()); err != nil {
		return fmt.Errorf("acknowledge: %w", err)
	}
	return nil
}

func (s *service) Unacknowledge(ctx context.Context, findingID string) error {
	if err := s.findings.ClearAcknowledged(ctx, findingID); err != nil {
		return fmt.Errorf("unacknowledge: %w", err)
	}
	return nil
}

func (s *service) AddNote(ctx context.Context, findingID, author, text string) (*domain.FindingNote, error) {
	if text == "" {
		return nil, fmt.Errorf("note text is required")
	}
	note := modelstore.FindingNoteRow{
		ID:        uuid.NewString(),
		FindingID: findingID,
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.findings.AddNote(ctx, note); err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	return &domain.FindingNote{
		ID:        note.ID,
		FindingID: note.FindingID,
		Author:    note.Author,
		Text:      note.Text,
		CreatedAt: note.CreatedAt,
	}, nil
}

func (s *service) ListNotes(ctx context.Context, findingID string) ([]domain.FindingNote, error) {
	rows, err := s.findings.ListNotes(ctx, findingID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	out := make([]domain.FindingNote, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.FindingNote{
			ID:        row.ID,
			FindingID: row.FindingID,
			Author:    row.Author,
			Text:      row.Text,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) DeleteNote(ctx context.Context, noteID string) error {
	if err := s.findings.DeleteNote(ctx, noteID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (s *service) ScoreHistory(ctx context.Context, accountID string, limit int) ([]domain.ScoreHistoryEntry, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	rows, err := s.history.ListScoreHistory(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list score history: %w", err)
	}
	out := make([]domain.ScoreHistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, adapters.MapScoreEntryStoreToDomain(row))
	}
	return out, nil
}

func (s *service) ResourceHistory(ctx context.Context, accountID, resourceID string, limit int) ([]domain.ResourceHistoryEntry, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	rows, err := s.history.ListResourceHistory(ctx, accountID, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list resource history: %w", err)
	}
	out := make([]domain.ResourceHistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, adapters.MapResourceEntryStoreToDomain(row))
	}
	return out, nil
}
