package engine

import (
	"context"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/services/provider"
)

// EvalContext carries everything a condition check may read during one run:
// the full inventory (attachment checks walk reverse references), the
// provider client for live checks (nil when no credential is configured)
// and the run clock.
type EvalContext struct {
	AccountID   string
	Resources   []domain.Resource
	Provider    provider.Client
	Now         time.Time
	LiveTimeout time.Duration
}

func (ec *EvalContext) ResourcesOfType(t string) []domain.Resource {
	var out []domain.Resource
	for _, r := range ec.Resources {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// CheckFunc evaluates one deterministic condition against one resource.
// It never returns an error: missing or unreadable source data resolves to
// a not_applicable outcome with an explanatory detail.
type CheckFunc func(ec *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome

// AccountCheckFunc evaluates an account-scoped or live-provider condition
// and fans out into zero or more findings (one per user, per login, per
// cluster). Only RuleID, ResourceID, Status and Detail are set; the
// orchestrator stamps the rest.
type AccountCheckFunc func(ctx context.Context, ec *EvalContext, rule domain.Rule) []domain.Finding

// resourceChecks is the flat dispatch registry for deterministic condition
// kinds. Adding a kind means adding one entry, not a type.
var resourceChecks = map[domain.ConditionType]CheckFunc{
	domain.ConditionFirewallAttached:         checkFirewallAttached,
	domain.ConditionVolumeAttached:           checkVolumeAttached,
	domain.ConditionFirewallHasTargets:       checkFirewallHasTargets,
	domain.ConditionFirewallNoOpenInbound:    checkNoOpenInbound,
	domain.ConditionFirewallRFC1918Sources:   checkRFC1918Sources,
	domain.ConditionFirewallAllPortsAllowed:  checkAllPortsAllowed,
	domain.ConditionFirewallPolicy:           checkFirewallPolicy,
	domain.ConditionFirewallNoDuplicateRules: checkNoDuplicateRules,
	domain.ConditionFirewallRuleDescriptions: checkRuleDescriptions,
	domain.ConditionRequiredTags:             checkRequiredTags,
	domain.ConditionBackupRecency:            checkBackupRecency,
	domain.ConditionDiskEncryption:           checkDiskEncryption,
	domain.ConditionInstanceNotOffline:       checkInstanceNotOffline,
	domain.ConditionInstanceLock:             checkInstanceLock,
	domain.ConditionApprovedRegions:          checkApprovedRegions,
	domain.ConditionApprovedPlanTiers:        checkApprovedPlanTiers,
	domain.ConditionDBAllowList:              checkDBAllowList,
	domain.ConditionDBPublicAccess:           checkDBPublicAccess,
	domain.ConditionBucketACL:                checkBucketACL,
	domain.ConditionBucketCORS:               checkBucketCORS,
	domain.ConditionClusterMinNodeCount:      checkClusterMinNodeCount,
	domain.ConditionClusterHighAvailability:  checkClusterHighAvailability,
	domain.ConditionClusterAuditLogs:         checkClusterAuditLogs,
}

// accountChecks covers the live-provider kinds. They run with a bounded
// concurrency limit and a per-call timeout; a provider failure degrades the
// one rule to not_applicable, never the run.
var accountChecks = map[domain.ConditionType]AccountCheckFunc{
	domain.ConditionAccountTFAEnabled:      checkAccountTFA,
	domain.ConditionLoginAllowedIPs:        checkLoginAllowedIPs,
	domain.ConditionClusterControlPlaneACL: checkControlPlaneACL,
}

// EvaluateResource dispatches one deterministic rule against one resource.
func EvaluateResource(ec *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	check, ok := resourceChecks[rule.ConditionType]
	if !ok {
		return notApplicable("Unknown condition type %q", rule.ConditionType)
	}
	return check(ec, rule, res)
}

// IsAccountScoped reports whether the rule's kind fans out at account scope
// rather than per inventoried resource.
func IsAccountScoped(ct domain.ConditionType) bool {
	_, ok := accountChecks[ct]
	return ok
}

// EvaluateAccount dispatches one account-scoped rule.
func EvaluateAccount(ctx context.Context, ec *EvalContext, rule domain.Rule) []domain.Finding {
	check, ok := accountChecks[rule.ConditionType]
	if !ok {
		return nil
	}
	return check(ctx, ec, rule)
}
