package engine

import (
	"math"
	"sort"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// ComputeScore rolls one run's findings up into a score history entry.
// Acknowledged findings are excluded from both the numerator and the
// denominator and from the per-rule breakdown; they only feed the
// acknowledged counter. not_applicable findings never enter the
// denominator. Score is nil when nothing counted.
func ComputeScore(accountID string, findings []*domain.Finding, rulesByID map[string]domain.Rule) domain.ScoreHistoryEntry {
	entry := domain.ScoreHistoryEntry{AccountID: accountID}
	perRule := map[string]*domain.RuleScore{}

	for _, f := range findings {
		if f.Acknowledged {
			entry.Acknowledged++
			continue
		}
		rs, ok := perRule[f.RuleID]
		if !ok {
			rs = &domain.RuleScore{RuleID: f.RuleID}
			if rule, found := rulesByID[f.RuleID]; found {
				rs.RuleName = rule.Name
			}
			perRule[f.RuleID] = rs
		}
		switch f.Status {
		case domain.StatusCompliant:
			entry.Compliant++
			rs.Compliant++
		case domain.StatusNonCompliant:
			entry.NonCompliant++
			rs.NonCompliant++
		case domain.StatusNotApplicable:
			entry.NotApplicable++
			rs.NotApplicable++
		}
	}

	denominator := entry.Compliant + entry.NonCompliant
	if denominator > 0 {
		score := math.Round(float64(entry.Compliant)/float64(denominator)*100*100) / 100
		entry.Score = &score
	}

	ruleIDs := make([]string, 0, len(perRule))
	for id := range perRule {
		ruleIDs = append(ruleIDs, id)
	}
	sort.Strings(ruleIDs)
	for _, id := range ruleIDs {
		entry.RuleBreakdown = append(entry.RuleBreakdown, *perRule[id])
	}
	return entry
}

// BuildResourceHistory denormalizes a run's resource-scoped findings into
// per-resource timeline rows, annotated with rule name and severity so the
// timeline renders without the historical catalog.
func BuildResourceHistory(accountID string, findings []*domain.Finding, rulesByID map[string]domain.Rule) []domain.ResourceHistoryEntry {
	perResource := map[string][]domain.HistoricalFinding{}
	for _, f := range findings {
		if f.ResourceID == "" {
			continue
		}
		hf := domain.HistoricalFinding{
			RuleID:       f.RuleID,
			Status:       f.Status,
			Detail:       f.Detail,
			Acknowledged: f.Acknowledged,
		}
		if rule, ok := rulesByID[f.RuleID]; ok {
			hf.RuleName = rule.Name
			hf.Severity = rule.Severity
		}
		perResource[f.ResourceID] = append(perResource[f.ResourceID], hf)
	}

	resourceIDs := make([]string, 0, len(perResource))
	for id := range perResource {
		resourceIDs = append(resourceIDs, id)
	}
	sort.Strings(resourceIDs)

	out := make([]domain.ResourceHistoryEntry, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		out = append(out, domain.ResourceHistoryEntry{
			AccountID:  accountID,
			ResourceID: id,
			Findings:   perResource[id],
		})
	}
	return out
}
