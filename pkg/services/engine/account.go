package engine

import (
	"context"
	"net/netip"
	"strconv"
	"strings"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// Live checks. A missing credential, a provider failure or an unsupported
// feature on a resource all degrade the finding to not_applicable; the run
// itself never fails on a provider call.

func accountFinding(rule domain.Rule, resourceID string, outcome domain.Outcome) domain.Finding {
	return domain.Finding{
		RuleID:     rule.ID,
		ResourceID: resourceID,
		Status:     outcome.Status,
		Detail:     outcome.Detail,
	}
}

func (ec *EvalContext) liveContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ec.LiveTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ec.LiveTimeout)
}

func checkAccountTFA(ctx context.Context, ec *EvalContext, rule domain.Rule) []domain.Finding {
	if ec.Provider == nil {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("No provider credential configured; cannot verify user TFA status"))}
	}
	callCtx, cancel := ec.liveContext(ctx)
	defer cancel()

	users, err := ec.Provider.ListUsers(callCtx)
	if err != nil {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("Could not list account users: %v", err))}
	}
	if len(users) == 0 {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("Account has no users to check"))}
	}

	findings := make([]domain.Finding, 0, len(users))
	for _, u := range users {
		if u.TFAEnabled {
			findings = append(findings, accountFinding(rule, "",
				compliant("User %s has two-factor authentication enabled", u.Username)))
		} else {
			findings = append(findings, accountFinding(rule, "",
				nonCompliant("User %s does not have two-factor authentication enabled", u.Username)))
		}
	}
	return findings
}

func checkLoginAllowedIPs(ctx context.Context, ec *EvalContext, rule domain.Rule) []domain.Finding {
	allowed := cfgStringList(rule.ConditionConfig, "allowed_cidrs")
	if len(allowed) == 0 {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("Rule has no allowed login CIDRs configured"))}
	}
	var prefixes []netip.Prefix
	for _, c := range allowed {
		if p, err := netip.ParsePrefix(strings.TrimSpace(c)); err == nil {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("No parseable CIDR in the allowed login list"))}
	}

	if ec.Provider == nil {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("No provider credential configured; cannot read login history"))}
	}
	callCtx, cancel := ec.liveContext(ctx)
	defer cancel()

	logins, err := ec.Provider.ListLogins(callCtx)
	if err != nil {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("Could not read login history: %v", err))}
	}
	if len(logins) == 0 {
		return []domain.Finding{accountFinding(rule, "",
			notApplicable("No logins recorded"))}
	}

	findings := make([]domain.Finding, 0, len(logins))
	for _, login := range logins {
		addr, err := netip.ParseAddr(login.IP)
		if err != nil {
			findings = append(findings, accountFinding(rule, "",
				notApplicable("Login %d by %s from unparseable address %q", login.ID, login.Username, login.IP)))
			continue
		}
		inRange := false
		for _, p := range prefixes {
			if p.Contains(addr) {
				inRange = true
				break
			}
		}
		if inRange {
			findings = append(findings, accountFinding(rule, "",
				compliant("Login by %s from %s is inside the allowed ranges", login.Username, login.IP)))
		} else {
			findings = append(findings, accountFinding(rule, "",
				nonCompliant("Login by %s from %s is outside the allowed ranges", login.Username, login.IP)))
		}
	}
	return findings
}

func checkControlPlaneACL(ctx context.Context, ec *EvalContext, rule domain.Rule) []domain.Finding {
	clusters := ec.ResourcesOfType(domain.ResourceTypeCluster)
	if len(clusters) == 0 {
		return nil
	}
	if ec.Provider == nil {
		findings := make([]domain.Finding, 0, len(clusters))
		for _, c := range clusters {
			findings = append(findings, accountFinding(rule, c.ID,
				notApplicable("No provider credential configured; cannot read control plane ACL for %s", c.Label)))
		}
		return findings
	}

	findings := make([]domain.Finding, 0, len(clusters))
	for _, cluster := range clusters {
		findings = append(findings, controlPlaneACLFinding(ctx, ec, rule, cluster))
	}
	return findings
}

func controlPlaneACLFinding(ctx context.Context, ec *EvalContext, rule domain.Rule, cluster domain.Resource) domain.Finding {
	id, err := strconv.Atoi(cluster.ID)
	if err != nil {
		return accountFinding(rule, cluster.ID,
			notApplicable("Cluster id %q is not numeric", cluster.ID))
	}

	callCtx, cancel := ec.liveContext(ctx)
	defer cancel()

	acl, err := ec.Provider.GetControlPlaneACL(callCtx, id)
	if err != nil {
		// Unsupported-feature responses land here too.
		return accountFinding(rule, cluster.ID,
			notApplicable("Could not read control plane ACL for %s: %v", cluster.Label, err))
	}
	if acl.Enabled {
		return accountFinding(rule, cluster.ID,
			compliant("Control plane ACL is enabled for %s", cluster.Label))
	}
	return accountFinding(rule, cluster.ID,
		nonCompliant("Control plane ACL is disabled for %s", cluster.Label))
}
