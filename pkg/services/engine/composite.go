package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// Composite operators combine the findings other rules produced in pass 1.
// The resolver only reads the arena; it never re-runs a base check.
const (
	OperatorAnd    = "AND"
	OperatorOr     = "OR"
	OperatorNot    = "NOT"
	OperatorIfThen = "IF_THEN"
)

type findingKey struct {
	RuleID     string
	ResourceID string
}

// Arena is the in-memory result set of pass 1, indexed for the resolver.
// Account-level checks can produce several findings under one key (one per
// user or login), so keys map to slices.
type Arena struct {
	byKey  map[findingKey][]*domain.Finding
	byRule map[string][]*domain.Finding
}

func NewArena() *Arena {
	return &Arena{
		byKey:  map[findingKey][]*domain.Finding{},
		byRule: map[string][]*domain.Finding{},
	}
}

func (a *Arena) Add(f *domain.Finding) {
	key := findingKey{RuleID: f.RuleID, ResourceID: f.ResourceID}
	a.byKey[key] = append(a.byKey[key], f)
	a.byRule[f.RuleID] = append(a.byRule[f.RuleID], f)
}

func (a *Arena) Findings() []*domain.Finding {
	var out []*domain.Finding
	for _, fs := range a.byRule {
		out = append(out, fs...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RuleID != out[j].RuleID {
			return out[i].RuleID < out[j].RuleID
		}
		return out[i].ResourceID < out[j].ResourceID
	})
	return out
}

// resourceIDs returns the distinct non-empty resource ids any of the given
// rules produced findings for.
func (a *Arena) resourceIDs(ruleIDs []string) []string {
	seen := map[string]bool{}
	for _, id := range ruleIDs {
		for _, f := range a.byRule[id] {
			if f.ResourceID != "" {
				seen[f.ResourceID] = true
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// statusFor resolves one sub-rule's status for one resource. A
// resource-scoped finding wins; account-level findings act as the fallback
// for every resource. Several findings under one key collapse to the worst
// status: any non_compliant dominates, then any compliant, else
// not_applicable.
func (a *Arena) statusFor(ruleID, resourceID string) (domain.FindingStatus, bool) {
	if fs, ok := a.byKey[findingKey{RuleID: ruleID, ResourceID: resourceID}]; ok && len(fs) > 0 {
		return collapseStatuses(fs), true
	}
	if resourceID != "" {
		if fs, ok := a.byKey[findingKey{RuleID: ruleID}]; ok && len(fs) > 0 {
			return collapseStatuses(fs), true
		}
	}
	return domain.StatusNotApplicable, false
}

func collapseStatuses(fs []*domain.Finding) domain.FindingStatus {
	anyCompliant := false
	for _, f := range fs {
		switch f.Status {
		case domain.StatusNonCompliant:
			return domain.StatusNonCompliant
		case domain.StatusCompliant:
			anyCompliant = true
		}
	}
	if anyCompliant {
		return domain.StatusCompliant
	}
	return domain.StatusNotApplicable
}

// compositeConfig is a composite rule's parsed condition_config.
type compositeConfig struct {
	Operator   string
	RuleIDs    []string
	IfRuleID   string
	ThenRuleID string
}

func parseCompositeConfig(cfg map[string]any) (compositeConfig, error) {
	out := compositeConfig{
		Operator:   strings.ToUpper(cfgString(cfg, "operator", "")),
		RuleIDs:    cfgStringList(cfg, "rule_ids"),
		IfRuleID:   cfgString(cfg, "if_rule_id", ""),
		ThenRuleID: cfgString(cfg, "then_rule_id", ""),
	}
	switch out.Operator {
	case OperatorAnd, OperatorOr:
		if len(out.RuleIDs) == 0 {
			return out, fmt.Errorf("%s composite needs rule_ids", out.Operator)
		}
	case OperatorNot:
		if len(out.RuleIDs) != 1 {
			return out, fmt.Errorf("NOT composite needs exactly one rule id, got %d", len(out.RuleIDs))
		}
	case OperatorIfThen:
		if out.IfRuleID == "" || out.ThenRuleID == "" {
			return out, fmt.Errorf("IF_THEN composite needs if_rule_id and then_rule_id")
		}
	default:
		return out, fmt.Errorf("unknown composite operator %q", out.Operator)
	}
	return out, nil
}

// ResolveComposite evaluates one composite rule over the arena. Catalog
// integrity problems (bad config, references to rules that produced no
// findings) resolve to not_applicable findings, never an error.
func ResolveComposite(arena *Arena, rule domain.Rule) []domain.Finding {
	cfg, err := parseCompositeConfig(rule.ConditionConfig)
	if err != nil {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("Invalid composite configuration: %v", err))}
	}

	referenced := cfg.RuleIDs
	if cfg.Operator == OperatorIfThen {
		referenced = []string{cfg.IfRuleID, cfg.ThenRuleID}
	}
	anyFindings := false
	for _, id := range referenced {
		if len(arena.byRule[id]) > 0 {
			anyFindings = true
			break
		}
	}
	if !anyFindings {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("Referenced rules produced no findings this run"))}
	}

	// Fan out over every resource any referenced sub-rule touched; collapse
	// to a single account-level finding only when none did.
	scopes := arena.resourceIDs(referenced)
	if len(scopes) == 0 {
		scopes = []string{""}
	}

	findings := make([]domain.Finding, 0, len(scopes))
	for _, resourceID := range scopes {
		var outcome domain.Outcome
		switch cfg.Operator {
		case OperatorAnd:
			outcome = resolveAnd(arena, cfg.RuleIDs, resourceID)
		case OperatorOr:
			outcome = resolveOr(arena, cfg.RuleIDs, resourceID)
		case OperatorNot:
			outcome = resolveNot(arena, cfg.RuleIDs[0], resourceID)
		case OperatorIfThen:
			outcome = resolveIfThen(arena, cfg.IfRuleID, cfg.ThenRuleID, resourceID)
		}
		findings = append(findings, accountFinding(rule, resourceID, outcome))
	}
	return findings
}

func resolveAnd(arena *Arena, ruleIDs []string, resourceID string) domain.Outcome {
	allCompliant := true
	for _, id := range ruleIDs {
		status, _ := arena.statusFor(id, resourceID)
		switch status {
		case domain.StatusNonCompliant:
			return nonCompliant("Sub-rule %s is non-compliant", id)
		case domain.StatusNotApplicable:
			allCompliant = false
		}
	}
	if allCompliant {
		return compliant("All %d sub-rules are compliant", len(ruleIDs))
	}
	return notApplicable("No sub-rule is non-compliant, but not all are applicable")
}

func resolveOr(arena *Arena, ruleIDs []string, resourceID string) domain.Outcome {
	anyNotApplicable := false
	for _, id := range ruleIDs {
		status, _ := arena.statusFor(id, resourceID)
		switch status {
		case domain.StatusCompliant:
			return compliant("Sub-rule %s is compliant", id)
		case domain.StatusNotApplicable:
			anyNotApplicable = true
		}
	}
	if anyNotApplicable {
		return notApplicable("No sub-rule is compliant and at least one is not applicable")
	}
	return nonCompliant("None of the %d sub-rules is compliant", len(ruleIDs))
}

func resolveNot(arena *Arena, ruleID, resourceID string) domain.Outcome {
	status, _ := arena.statusFor(ruleID, resourceID)
	switch status {
	case domain.StatusCompliant:
		return nonCompliant("Sub-rule %s is compliant, negated by NOT", ruleID)
	case domain.StatusNonCompliant:
		return compliant("Sub-rule %s is non-compliant, negated by NOT", ruleID)
	default:
		return notApplicable("Sub-rule %s is not applicable", ruleID)
	}
}

func resolveIfThen(arena *Arena, ifRuleID, thenRuleID, resourceID string) domain.Outcome {
	ifStatus, _ := arena.statusFor(ifRuleID, resourceID)
	if ifStatus != domain.StatusNonCompliant {
		return notApplicable("IF condition not triggered")
	}
	thenStatus, _ := arena.statusFor(thenRuleID, resourceID)
	if thenStatus == domain.StatusCompliant {
		return compliant("IF condition triggered and THEN rule %s is compliant", thenRuleID)
	}
	return nonCompliant("IF condition triggered but THEN rule %s is not compliant", thenRuleID)
}
