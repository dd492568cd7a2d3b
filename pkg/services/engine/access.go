package engine

import (
	"strings"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

var defaultForbiddenCIDRs = []string{"0.0.0.0/0", "::/0"}

var defaultForbiddenACLs = []string{"public-read", "public-read-write"}

func checkDBAllowList(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	allowList, ok := specStringList(res.Specs, "allow_list")
	if !ok {
		return notApplicable("Allow list has not been synced for %s", res.Label)
	}

	if len(allowList) == 0 {
		if cfgBool(rule.ConditionConfig, "require_non_empty", false) {
			return nonCompliant("Allow list is empty but a non-empty allow list is required")
		}
		return compliant("Allow list is empty (access restricted by default)")
	}

	forbidden := cfgStringList(rule.ConditionConfig, "forbidden_cidrs")
	if len(forbidden) == 0 {
		forbidden = defaultForbiddenCIDRs
	}
	forbiddenSet := make(map[string]bool, len(forbidden))
	for _, c := range forbidden {
		forbiddenSet[strings.TrimSpace(c)] = true
	}

	var violations []string
	for _, entry := range allowList {
		if forbiddenSet[strings.TrimSpace(entry)] {
			violations = append(violations, entry)
		}
	}
	if len(violations) == 0 {
		return compliant("Allow list contains %d entries, none forbidden", len(allowList))
	}
	return nonCompliant("Allow list contains forbidden entries: %s", strings.Join(violations, ", "))
}

func checkDBPublicAccess(_ *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	public, ok := specBool(res.Specs, "public_access")
	if !ok {
		return notApplicable("Public access state has not been synced for %s", res.Label)
	}
	if public {
		return nonCompliant("Database %s is publicly accessible", res.Label)
	}
	return compliant("Database is not publicly accessible")
}

func checkBucketACL(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	acl, ok := specString(res.Specs, "acl")
	if !ok || acl == "" {
		return notApplicable("ACL has not been synced for %s", res.Label)
	}
	forbidden := cfgStringList(rule.ConditionConfig, "forbidden_acls")
	if len(forbidden) == 0 {
		forbidden = defaultForbiddenACLs
	}
	for _, f := range forbidden {
		if strings.EqualFold(acl, f) {
			return nonCompliant("Bucket %s uses forbidden ACL %q", res.Label, acl)
		}
	}
	return compliant("Bucket ACL is %q", acl)
}

func checkBucketCORS(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	corsEnabled, ok := specBool(res.Specs, "cors_enabled")
	if !ok {
		return notApplicable("CORS state has not been synced for %s", res.Label)
	}
	if cfgBool(rule.ConditionConfig, "forbid_cors", true) && corsEnabled {
		return nonCompliant("CORS is enabled on bucket %s", res.Label)
	}
	if corsEnabled {
		return compliant("CORS is enabled and permitted by the rule")
	}
	return compliant("CORS is disabled")
}
