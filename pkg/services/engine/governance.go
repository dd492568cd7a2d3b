package engine

import (
	"regexp"
	"strings"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

func checkApprovedRegions(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	approved := cfgStringList(rule.ConditionConfig, "regions")
	if len(approved) == 0 {
		return notApplicable("Rule has no approved regions configured")
	}
	if res.Region == "" {
		return notApplicable("Region has not been synced for %s", res.Label)
	}
	for _, region := range approved {
		if strings.EqualFold(res.Region, region) {
			return compliant("Region %s is approved", res.Region)
		}
	}
	return nonCompliant("Region %s is not in the approved list (%s)",
		res.Region, strings.Join(approved, ", "))
}

// planClassPrefix strips a leading hardware-class prefix like "g6-" or
// "g7-"; planSizeSuffix strips the trailing numeric size like "-4".
var (
	planClassPrefix = regexp.MustCompile(`^g\d+-`)
	planSizeSuffix  = regexp.MustCompile(`-\d+$`)
)

// planTier extracts the tier from a plan identifier: "g6-standard-2" →
// "standard", "g7-highmem-16" → "highmem", "g6-dedicated-edge-1" →
// "dedicated-edge".
func planTier(planType string) string {
	tier := planClassPrefix.ReplaceAllString(strings.TrimSpace(planType), "")
	tier = planSizeSuffix.ReplaceAllString(tier, "")
	return tier
}

// checkApprovedPlanTiers is tag-gated: only resources carrying the
// configured tag are held to the approved tier prefixes.
func checkApprovedPlanTiers(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	gateTag := cfgString(rule.ConditionConfig, "tag", "")
	approved := cfgStringList(rule.ConditionConfig, "tiers")
	if gateTag == "" || len(approved) == 0 {
		return notApplicable("Rule needs both a gating tag and approved tiers configured")
	}

	tags, ok := specStringList(res.Specs, "tags")
	if !ok {
		return notApplicable("Tags have not been synced for %s", res.Label)
	}
	gate := requiredTag{Key: gateTag, Value: "*"}
	gated := false
	for _, tag := range tags {
		if gate.matchesTag(tag) {
			gated = true
			break
		}
	}
	if !gated {
		return notApplicable("Resource is not tagged %q", gateTag)
	}

	if res.PlanType == "" {
		return notApplicable("Plan type has not been synced for %s", res.Label)
	}
	tier := planTier(res.PlanType)
	for _, t := range approved {
		if strings.HasPrefix(strings.ToLower(tier), strings.ToLower(t)) {
			return compliant("Plan tier %q is approved", tier)
		}
	}
	return nonCompliant("Plan tier %q (from %s) is not in the approved list (%s)",
		tier, res.PlanType, strings.Join(approved, ", "))
}
