package engine

import (
	"strings"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// requiredTag is one entry of the required_tags config `tags` list:
// {key, value}. Value "*" or "" accepts any value after the colon.
type requiredTag struct {
	Key   string
	Value string
}

// matchesTag checks a flat resource tag ("key" or "key:value") against a
// requirement. Keys compare case-insensitively; a wildcard value matches
// both the bare form and any "key:value" form.
func (rt requiredTag) matchesTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	key := strings.ToLower(strings.TrimSpace(rt.Key))
	wildcard := rt.Value == "" || rt.Value == "*"

	if k, v, ok := strings.Cut(tag, ":"); ok {
		if !strings.EqualFold(strings.TrimSpace(k), key) {
			return false
		}
		if wildcard {
			return true
		}
		return strings.EqualFold(strings.TrimSpace(v), rt.Value)
	}
	// Bare tag: matches only a key-only or wildcard requirement.
	return wildcard && strings.EqualFold(tag, key)
}

func parseRequiredTags(cfg map[string]any) []requiredTag {
	raw, ok := specList(cfg, "tags")
	if !ok {
		return nil
	}
	out := make([]requiredTag, 0, len(raw))
	for _, item := range raw {
		switch t := item.(type) {
		case string:
			key, value, _ := strings.Cut(t, ":")
			out = append(out, requiredTag{Key: key, Value: value})
		case map[string]any:
			out = append(out, requiredTag{
				Key:   cfgString(t, "key", ""),
				Value: cfgString(t, "value", ""),
			})
		}
	}
	return out
}

func checkRequiredTags(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	required := parseRequiredTags(rule.ConditionConfig)
	if len(required) == 0 {
		return notApplicable("Rule has no required tags configured")
	}
	tags, ok := specStringList(res.Specs, "tags")
	if !ok {
		return notApplicable("Tags have not been synced for %s", res.Label)
	}

	var missing []string
	for _, req := range required {
		found := false
		for _, tag := range tags {
			if req.matchesTag(tag) {
				found = true
				break
			}
		}
		if !found {
			if req.Value == "" || req.Value == "*" {
				missing = append(missing, req.Key)
			} else {
				missing = append(missing, req.Key+":"+req.Value)
			}
		}
	}
	if len(missing) == 0 {
		return compliant("All required tags present")
	}
	return nonCompliant("Missing required tags: %s", strings.Join(missing, ", "))
}
