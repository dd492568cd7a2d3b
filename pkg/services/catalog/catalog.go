package catalog

import (
	"context"
	"fmt"

	"github.com/de-tools/cloud-warden/pkg/adapters"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	modelstore "github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/store/sqlite/catalog"
)

// RuleWithActivation pairs a rule with its activation state as resolved for
// one account: the override value when an override row exists, else the
// rule's own default.
type RuleWithActivation struct {
	Rule   domain.Rule
	Active bool
}

// ProfileApplication reports what ApplyProfile changed.
type ProfileApplication struct {
	ProfileID string
	Enabled   int
	Disabled  int
}

type Service interface {
	// EffectiveRules returns the rules an evaluation run executes for the
	// account: visible rules whose effective activation is true.
	EffectiveRules(ctx context.Context, accountID string) ([]domain.Rule, error)
	ListRules(ctx context.Context, accountID string) ([]RuleWithActivation, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	ApplyProfile(ctx context.Context, accountID, profileID string) (*ProfileApplication, error)
}

type service struct {
	store catalog.Store
}

func NewService(store catalog.Store) Service {
	return &service{store: store}
}

func (s *service) EffectiveRules(ctx context.Context, accountID string) ([]domain.Rule, error) {
	withActivation, err := s.ListRules(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var active []domain.Rule
	for _, r := range withActivation {
		if r.Active {
			active = append(active, r.Rule)
		}
	}
	return active, nil
}

func (s *service) ListRules(ctx context.Context, accountID string) ([]RuleWithActivation, error) {
	ruleRows, err := s.store.ListRules(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	overrideRows, err := s.store.ListOverrides(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}

	overrides := make(map[string]bool, len(overrideRows))
	for _, o := range overrideRows {
		overrides[o.RuleID] = o.IsActive
	}

	out := make([]RuleWithActivation, 0, len(ruleRows))
	for _, row := range ruleRows {
		rule := adapters.MapRuleStoreToDomain(row)
		active := rule.IsActive
		if v, ok := overrides[rule.ID]; ok {
			active = v
		}
		out = append(out, RuleWithActivation{Rule: rule, Active: active})
	}
	return out, nil
}

func (s *service) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]domain.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, adapters.MapProfileStoreToDomain(row))
	}
	return out, nil
}

// ApplyProfile replaces the account's whole override set: every visible rule
// gets an override row, active iff its condition type is in the profile's
// bundle. Applying a second profile supersedes the first.
func (s *service) ApplyProfile(ctx context.Context, accountID, profileID string) (*ProfileApplication, error) {
	profileRow, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profileRow == nil {
		return nil, fmt.Errorf("profile %s not found", profileID)
	}
	profile := adapters.MapProfileStoreToDomain(*profileRow)

	ruleRows, err := s.store.ListRules(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	application := ProfileApplication{ProfileID: profileID}
	overrides := make([]modelstore.RuleOverrideRow, 0, len(ruleRows))
	for _, row := range ruleRows {
		rule := adapters.MapRuleStoreToDomain(row)
		active := profile.Includes(rule.ConditionType)
		if active {
			application.Enabled++
		} else {
			application.Disabled++
		}
		overrides = append(overrides, modelstore.RuleOverrideRow{
			AccountID:          accountID,
			RuleID:             rule.ID,
			IsActive:           active,
			AppliedByProfileID: profileID,
		})
	}

	if err := s.store.ReplaceOverrides(ctx, accountID, overrides); err != nil {
		return nil, fmt.Errorf("replace overrides: %w", err)
	}
	return &application, nil
}
