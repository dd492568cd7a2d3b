package adapters

import (
	"github.com/de-tools/cloud-warden/pkg/models/api"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/models/store"
)

func MapResourceStoreToDomain(r store.ResourceRow) domain.Resource {
	return domain.Resource{
		ID:          r.ID,
		Type:        r.Type,
		Label:       r.Label,
		Region:      r.Region,
		PlanType:    r.PlanType,
		MonthlyCost: r.MonthlyCost,
		Status:      r.Status,
		Specs:       r.Specs,
	}
}

func MapRuleStoreToDomain(r store.RuleRow) domain.Rule {
	return domain.Rule{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		ResourceTypes:   r.ResourceTypes,
		ConditionType:   domain.ConditionType(r.ConditionType),
		ConditionConfig: r.ConditionConfig,
		Severity:        domain.Severity(r.Severity),
		IsActive:        r.IsActive,
		AccountID:       r.AccountID,
		IsBuiltin:       r.IsBuiltin,
	}
}

func MapOverrideStoreToDomain(o store.RuleOverrideRow) domain.RuleOverride {
	return domain.RuleOverride{
		AccountID:          o.AccountID,
		RuleID:             o.RuleID,
		IsActive:           o.IsActive,
		AppliedByProfileID: o.AppliedByProfileID,
	}
}

func MapProfileStoreToDomain(p store.ProfileRow) domain.Profile {
	types := make([]domain.ConditionType, 0, len(p.ConditionTypes))
	for _, t := range p.ConditionTypes {
		types = append(types, domain.ConditionType(t))
	}
	return domain.Profile{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		ConditionTypes: types,
	}
}

func MapFindingStoreToDomain(f store.FindingRow) domain.Finding {
	return domain.Finding{
		ID:               f.ID,
		RuleID:           f.RuleID,
		ResourceID:       f.ResourceID,
		AccountID:        f.AccountID,
		Status:           domain.FindingStatus(f.Status),
		Detail:           f.Detail,
		EvaluatedAt:      f.EvaluatedAt,
		Acknowledged:     f.Acknowledged,
		AcknowledgedAt:   f.AcknowledgedAt,
		AcknowledgedBy:   f.AcknowledgedBy,
		AcknowledgedNote: f.AcknowledgedNote,
	}
}

func MapFindingDomainToStore(f domain.Finding) store.FindingRow {
	return store.FindingRow{
		ID:               f.ID,
		RuleID:           f.RuleID,
		ResourceID:       f.ResourceID,
		AccountID:        f.AccountID,
		Status:           string(f.Status),
		Detail:           f.Detail,
		EvaluatedAt:      f.EvaluatedAt,
		Acknowledged:     f.Acknowledged,
		AcknowledgedAt:   f.AcknowledgedAt,
		AcknowledgedBy:   f.AcknowledgedBy,
		AcknowledgedNote: f.AcknowledgedNote,
	}
}

func MapFindingDomainToApi(f domain.Finding) api.Finding {
	return api.Finding{
		ID:               f.ID,
		RuleID:           f.RuleID,
		ResourceID:       f.ResourceID,
		AccountID:        f.AccountID,
		Status:           string(f.Status),
		Detail:           f.Detail,
		EvaluatedAt:      f.EvaluatedAt,
		Acknowledged:     f.Acknowledged,
		AcknowledgedAt:   f.AcknowledgedAt,
		AcknowledgedBy:   f.AcknowledgedBy,
		AcknowledgedNote: f.AcknowledgedNote,
	}
}

func MapNoteDomainToApi(n domain.FindingNote) api.FindingNote {
	return api.FindingNote{
		ID:        n.ID,
		FindingID: n.FindingID,
		Author:    n.Author,
		Text:      n.Text,
		CreatedAt: n.CreatedAt,
	}
}

func MapRuleDomainToApi(r domain.Rule, effectiveActive bool) api.Rule {
	scope := "global"
	if r.AccountID != "" {
		scope = "account"
	}
	return api.Rule{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		ResourceTypes:   r.ResourceTypes,
		ConditionType:   string(r.ConditionType),
		ConditionConfig: r.ConditionConfig,
		Severity:        string(r.Severity),
		Active:          effectiveActive,
		Scope:           scope,
		Builtin:         r.IsBuiltin,
	}
}

func MapRunSummaryDomainToApi(s domain.RunSummary) api.RunSummary {
	return api.RunSummary{
		AccountID:     s.AccountID,
		RunAt:         s.RunAt,
		Compliant:     s.Compliant,
		NonCompliant:  s.NonCompliant,
		NotApplicable: s.NotApplicable,
		Acknowledged:  s.Acknowledged,
		Score:         s.Score,
		FindingCount:  s.FindingCount,
	}
}

func MapScoreEntryStoreToDomain(e store.ScoreHistoryRow) domain.ScoreHistoryEntry {
	breakdown := make([]domain.RuleScore, 0, len(e.RuleBreakdown))
	for _, b := range e.RuleBreakdown {
		breakdown = append(breakdown, domain.RuleScore{
			RuleID:        b.RuleID,
			RuleName:      b.RuleName,
			Compliant:     b.Compliant,
			NonCompliant:  b.NonCompliant,
			NotApplicable: b.NotApplicable,
		})
	}
	return domain.ScoreHistoryEntry{
		AccountID:     e.AccountID,
		RunAt:         e.RunAt,
		Compliant:     e.Compliant,
		NonCompliant:  e.NonCompliant,
		NotApplicable: e.NotApplicable,
		Acknowledged:  e.Acknowledged,
		Score:         e.Score,
		RuleBreakdown: breakdown,
	}
}

func MapScoreEntryDomainToApi(e domain.ScoreHistoryEntry) api.ScoreHistoryEntry {
	breakdown := make([]api.RuleScore, 0, len(e.RuleBreakdown))
	for _, b := range e.RuleBreakdown {
		breakdown = append(breakdown, api.RuleScore{
			RuleID:        b.RuleID,
			RuleName:      b.RuleName,
			Compliant:     b.Compliant,
			NonCompliant:  b.NonCompliant,
			NotApplicable: b.NotApplicable,
		})
	}
	return api.ScoreHistoryEntry{
		AccountID:     e.AccountID,
		RunAt:         e.RunAt,
		Compliant:     e.Compliant,
		NonCompliant:  e.NonCompliant,
		NotApplicable: e.NotApplicable,
		Acknowledged:  e.Acknowledged,
		Score:         e.Score,
		RuleBreakdown: breakdown,
	}
}

func MapResourceEntryStoreToDomain(e store.ResourceHistoryRow) domain.ResourceHistoryEntry {
	findings := make([]domain.HistoricalFinding, 0, len(e.Findings))
	for _, f := range e.Findings {
		findings = append(findings, domain.HistoricalFinding{
			RuleID:       f.RuleID,
			RuleName:     f.RuleName,
			Severity:     domain.Severity(f.Severity),
			Status:       domain.FindingStatus(f.Status),
			Detail:       f.Detail,
			Acknowledged: f.Acknowledged,
		})
	}
	return domain.ResourceHistoryEntry{
		AccountID:  e.AccountID,
		ResourceID: e.ResourceID,
		RunAt:      e.RunAt,
		Findings:   findings,
	}
}

func MapResourceEntryDomainToApi(e domain.ResourceHistoryEntry) api.ResourceHistoryEntry {
	findings := make([]api.HistoricalFinding, 0, len(e.Findings))
	for _, f := range e.Findings {
		findings = append(findings, api.HistoricalFinding{
			RuleID:       f.RuleID,
			RuleName:     f.RuleName,
			Severity:     string(f.Severity),
			Status:       string(f.Status),
			Detail:       f.Detail,
			Acknowledged: f.Acknowledged,
		})
	}
	return api.ResourceHistoryEntry{
		AccountID:  e.AccountID,
		ResourceID: e.ResourceID,
		RunAt:      e.RunAt,
		Findings:   findings,
	}
}

func MapScoreEntryDomainToStore(e domain.ScoreHistoryEntry) store.ScoreHistoryRow {
	breakdown := make([]store.RuleScoreEntry, 0, len(e.RuleBreakdown))
	for _, b := range e.RuleBreakdown {
		breakdown = append(breakdown, store.RuleScoreEntry{
			RuleID:        b.RuleID,
			RuleName:      b.RuleName,
			Compliant:     b.Compliant,
			NonCompliant:  b.NonCompliant,
			NotApplicable: b.NotApplicable,
		})
	}
	return store.ScoreHistoryRow{
		AccountID:     e.AccountID,
		RunAt:         e.RunAt,
		Compliant:     e.Compliant,
		NonCompliant:  e.NonCompliant,
		NotApplicable: e.NotApplicable,
		Acknowledged:  e.Acknowledged,
		Score:         e.Score,
		RuleBreakdown: breakdown,
	}
}

func MapResourceEntryDomainToStore(e domain.ResourceHistoryEntry) store.ResourceHistoryRow {
	findings := make([]store.HistoricalFindingEntry, 0, len(e.Findings))
	for _, f := range e.Findings {
		findings = append(findings, store.HistoricalFindingEntry{
			RuleID:       f.RuleID,
			RuleName:     f.RuleName,
			Severity:     string(f.Severity),
			Status:       string(f.Status),
			Detail:       f.Detail,
			Acknowledged: f.Acknowledged,
		})
	}
	return store.ResourceHistoryRow{
		AccountID:  e.AccountID,
		ResourceID: e.ResourceID,
		RunAt:      e.RunAt,
		Findings:   findings,
	}
}
