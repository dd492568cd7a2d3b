package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/de-tools/cloud-warden/pkg/adapters"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	modelstore "github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/services/catalog"
	"github.com/de-tools/cloud-warden/pkg/services/provider"
	"github.com/de-tools/cloud-warden/pkg/store/sqlite"
	findingstore "github.com/de-tools/cloud-warden/pkg/store/sqlite/findings"
	historystore "github.com/de-tools/cloud-warden/pkg/store/sqlite/history"
	inventorystore "github.com/de-tools/cloud-warden/pkg/store/sqlite/inventory"
)

// ErrRunInProgress is returned when an evaluation is requested for an
// account that already has one in flight. Runs for the same account must
// not overlap: both would read the same catalog state and then replace the
// same findings partition.
var ErrRunInProgress = errors.New("an evaluation run is already in progress for this account")

type Settings struct {
	LiveCallConcurrency int
	LiveCallTimeout     time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		LiveCallConcurrency: 4,
		LiveCallTimeout:     10 * time.Second,
	}
}

// Evaluator orchestrates a full evaluation run: catalog + inventory in,
// findings + score history + resource history out.
type Evaluator struct {
	db        *sql.DB
	catalog   catalog.Service
	inventory inventorystore.Store
	findings  findingstore.Store
	history   historystore.Store
	provider  provider.Client
	settings  Settings

	mu      sync.Mutex
	running map[string]bool
}

func NewEvaluator(
	db *sql.DB,
	catalogSvc catalog.Service,
	inventory inventorystore.Store,
	findings findingstore.Store,
	history historystore.Store,
	providerClient provider.Client,
	settings Settings,
) *Evaluator {
	if settings.LiveCallConcurrency <= 0 {
		settings.LiveCallConcurrency = DefaultSettings().LiveCallConcurrency
	}
	if settings.LiveCallTimeout <= 0 {
		settings.LiveCallTimeout = DefaultSettings().LiveCallTimeout
	}
	return &Evaluator{
		db:        db,
		catalog:   catalogSvc,
		inventory: inventory,
		findings:  findings,
		history:   history,
		provider:  providerClient,
		settings:  settings,
		running:   map[string]bool{},
	}
}

func (e *Evaluator) acquire(accountID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[accountID] {
		return ErrRunInProgress
	}
	e.running[accountID] = true
	return nil
}

func (e *Evaluator) release(accountID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, accountID)
}

// Run executes one whole-account evaluation. Catalog or inventory read
// failures abort the run before anything is deleted, so the prior finding
// set stays intact. Per-check and per-provider-call failures never abort
// the run.
func (e *Evaluator) Run(ctx context.Context, accountID string) (*domain.RunSummary, error) {
	if err := e.acquire(accountID); err != nil {
		return nil, err
	}
	defer e.release(accountID)

	logger := zerolog.Ctx(ctx).With().Str("account", accountID).Logger()
	now := time.Now().UTC()

	rules, err := e.catalog.EffectiveRules(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load effective rules: %w", err)
	}

	resourceRows, err := e.inventory.ListResources(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	resources := make([]domain.Resource, 0, len(resourceRows))
	for _, row := range resourceRows {
		resources = append(resources, adapters.MapResourceStoreToDomain(row))
	}

	acknowledged, err := e.snapshotAcknowledgements(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("snapshot acknowledgements: %w", err)
	}

	ec := &EvalContext{
		AccountID:   accountID,
		Resources:   resources,
		Provider:    e.provider,
		Now:         now,
		LiveTimeout: e.settings.LiveCallTimeout,
	}

	arena := e.evaluate(ctx, ec, rules)

	rulesByID := make(map[string]domain.Rule, len(rules))
	for _, r := range rules {
		rulesByID[r.ID] = r
	}

	findings := arena.Findings()
	for _, f := range findings {
		f.ID = uuid.NewString()
		f.AccountID = accountID
		f.EvaluatedAt = now
		if ack, ok := acknowledged[findingKey{RuleID: f.RuleID, ResourceID: f.ResourceID}]; ok {
			f.Acknowledged = true
			at := ack.At
			f.AcknowledgedAt = &at
			f.AcknowledgedBy = ack.By
			f.AcknowledgedNote = ack.Note
		}
	}

	score := ComputeScore(accountID, findings, rulesByID)
	score.RunAt = now
	resourceHistory := BuildResourceHistory(accountID, findings, rulesByID)
	for i := range resourceHistory {
		resourceHistory[i].RunAt = now
	}

	if err := e.persist(ctx, accountID, findings, score, resourceHistory); err != nil {
		return nil, err
	}

	logger.Info().
		Int("findings", len(findings)).
		Int("compliant", score.Compliant).
		Int("non_compliant", score.NonCompliant).
		Msg("evaluation run completed")

	return &domain.RunSummary{
		AccountID:     accountID,
		RunAt:         now,
		Compliant:     score.Compliant,
		NonCompliant:  score.NonCompliant,
		NotApplicable: score.NotApplicable,
		Acknowledged:  score.Acknowledged,
		Score:         score.Score,
		FindingCount:  len(findings),
	}, nil
}

func (e *Evaluator) snapshotAcknowledgements(ctx context.Context, accountID string) (map[findingKey]domain.Acknowledgement, error) {
	rows, err := e.findings.ListAcknowledged(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make(map[findingKey]domain.Acknowledgement, len(rows))
	for _, row := range rows {
		f := adapters.MapFindingStoreToDomain(row)
		at := f.EvaluatedAt
		if f.AcknowledgedAt != nil {
			at = *f.AcknowledgedAt
		}
		out[findingKey{RuleID: f.RuleID, ResourceID: f.ResourceID}] = domain.Acknowledgement{
			RuleID:     f.RuleID,
			ResourceID: f.ResourceID,
			At:         at,
			By:         f.AcknowledgedBy,
			Note:       f.AcknowledgedNote,
		}
	}
	return out, nil
}

// evaluate runs both passes: base rules into the arena, then composites
// over it. Live account checks run with a bounded concurrency limit.
func (e *Evaluator) evaluate(ctx context.Context, ec *EvalContext, rules []domain.Rule) *Arena {
	arena := NewArena()

	var composites []domain.Rule
	var live []domain.Rule
	for _, rule := range rules {
		switch {
		case rule.ConditionType == domain.ConditionComposite:
			composites = append(composites, rule)
		case IsAccountScoped(rule.ConditionType):
			live = append(live, rule)
		default:
			for _, res := range ec.Resources {
				if !rule.AppliesTo(res.Type) {
					continue
				}
				outcome := EvaluateResource(ec, rule, res)
				arena.Add(&domain.Finding{
					RuleID:     rule.ID,
					ResourceID: res.ID,
					Status:     outcome.Status,
					Detail:     outcome.Detail,
				})
			}
		}
	}

	if len(live) > 0 {
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			sem = make(chan struct{}, e.settings.LiveCallConcurrency)
		)
		for _, rule := range live {
			wg.Add(1)
			go func(rule domain.Rule) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				results := EvaluateAccount(ctx, ec, rule)
				mu.Lock()
				defer mu.Unlock()
				for i := range results {
					f := results[i]
					arena.Add(&f)
				}
			}(rule)
		}
		wg.Wait()
	}

	for _, rule := range composites {
		for _, f := range ResolveComposite(arena, rule) {
			finding := f
			arena.Add(&finding)
		}
	}
	return arena
}

// persist swaps the finding set and appends both history streams inside one
// transaction, so readers never observe the transient empty state a bare
// delete-then-insert would expose.
func (e *Evaluator) persist(
	ctx context.Context,
	accountID string,
	findings []*domain.Finding,
	score domain.ScoreHistoryEntry,
	resourceHistory []domain.ResourceHistoryEntry,
) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txCtx := sqlite.WithTransaction(ctx, tx)

	rows := make([]modelstore.FindingRow, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, adapters.MapFindingDomainToStore(*f))
	}
	if err := e.findings.ReplaceForAccount(txCtx, accountID, rows); err != nil {
		tx.Rollback()
		return fmt.Errorf("replace findings: %w", err)
	}
	if err := e.history.AddScoreEntry(txCtx, adapters.MapScoreEntryDomainToStore(score)); err != nil {
		tx.Rollback()
		return fmt.Errorf("append score history: %w", err)
	}
	historyRows := make([]modelstore.ResourceHistoryRow, 0, len(resourceHistory))
	for _, entry := range resourceHistory {
		historyRows = append(historyRows, adapters.MapResourceEntryDomainToStore(entry))
	}
	if err := e.history.AddResourceEntries(txCtx, historyRows); err != nil {
		tx.Rollback()
		return fmt.Errorf("append resource history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}
