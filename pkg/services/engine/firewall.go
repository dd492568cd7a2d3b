package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// firewallRule is the parsed shape of one entry of a firewall's
// inbound_rules_detail / outbound_rules_detail specs list.
type firewallRule struct {
	Action      string
	Protocol    string
	Ports       string
	Label       string
	Description string
	IPv4        []string
	IPv6        []string
}

func (fr firewallRule) hasWildcardSource() bool {
	for _, c := range fr.IPv4 {
		if isWildcardSource(c) {
			return true
		}
	}
	for _, c := range fr.IPv6 {
		if isWildcardSource(c) {
			return true
		}
	}
	return false
}

func (fr firewallRule) displayName() string {
	if fr.Label != "" {
		return fr.Label
	}
	return fmt.Sprintf("%s %s", fr.Protocol, fr.Ports)
}

// fingerprint identifies a rule by what it matches, not what it is called.
// Two rules in the same direction with equal fingerprints are duplicates.
func (fr firewallRule) fingerprint() string {
	ipv4 := append([]string(nil), fr.IPv4...)
	ipv6 := append([]string(nil), fr.IPv6...)
	sort.Strings(ipv4)
	sort.Strings(ipv6)
	return strings.Join([]string{
		strings.ToUpper(fr.Action),
		strings.ToUpper(fr.Protocol),
		strings.Join(ipv4, ","),
		strings.Join(ipv6, ","),
		strings.TrimSpace(fr.Ports),
	}, "|")
}

func parseFirewallRules(specs map[string]any, key string) ([]firewallRule, bool) {
	raw, ok := specList(specs, key)
	if !ok {
		return nil, false
	}
	out := make([]firewallRule, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fr := firewallRule{
			Action:      cfgString(m, "action", ""),
			Protocol:    cfgString(m, "protocol", ""),
			Ports:       cfgString(m, "ports", ""),
			Label:       cfgString(m, "label", ""),
			Description: cfgString(m, "description", ""),
		}
		if addrs, ok := specMap(m, "addresses"); ok {
			fr.IPv4, _ = specStringList(addrs, "ipv4")
			fr.IPv6, _ = specStringList(addrs, "ipv6")
		}
		out = append(out, fr)
	}
	return out, true
}

func inboundRules(res domain.Resource) ([]firewallRule, bool) {
	return parseFirewallRules(res.Specs, "inbound_rules_detail")
}

func outboundRules(res domain.Resource) ([]firewallRule, bool) {
	return parseFirewallRules(res.Specs, "outbound_rules_detail")
}

// attachedFirewallIDs unions the instance's direct firewall list with
// reverse references from firewall resources whose entities name the
// instance, de-duplicated by id.
func attachedFirewallIDs(ec *EvalContext, res domain.Resource) map[string]bool {
	ids := map[string]bool{}
	if direct, ok := specList(res.Specs, "firewalls"); ok {
		for _, item := range direct {
			if id, ok := entityID(item); ok {
				ids[id] = true
			}
		}
	}
	for _, fw := range ec.ResourcesOfType(domain.ResourceTypeFirewall) {
		entities, ok := specList(fw.Specs, "entities")
		if !ok {
			continue
		}
		for _, item := range entities {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := entityID(m["id"]); ok && id == res.ID {
				ids[fw.ID] = true
			}
		}
	}
	return ids
}

// entityID normalizes numeric and string ids from specs payloads.
func entityID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		if id == "" {
			return "", false
		}
		return id, true
	case float64:
		return fmt.Sprintf("%.0f", id), true
	case int:
		return fmt.Sprintf("%d", id), true
	case map[string]any:
		return entityID(id["id"])
	default:
		return "", false
	}
}

func checkFirewallAttached(ec *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	ids := attachedFirewallIDs(ec, res)
	if len(ids) == 0 {
		return nonCompliant("No firewall is attached to %s", res.Label)
	}
	return compliant("%d firewall(s) attached", len(ids))
}

func checkVolumeAttached(_ *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	id, ok := specNumber(res.Specs, "linode_id")
	if !ok {
		if s, okStr := specString(res.Specs, "linode_id"); okStr && s != "" {
			return compliant("Volume is attached to instance %s", s)
		}
		return notApplicable("Attachment state has not been synced for %s", res.Label)
	}
	if id == 0 {
		return nonCompliant("Volume %s is not attached to any instance", res.Label)
	}
	return compliant("Volume is attached to instance %.0f", id)
}

func checkFirewallHasTargets(ec *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	targets := map[string]bool{}
	if entities, ok := specList(res.Specs, "entities"); ok {
		for _, item := range entities {
			if id, ok := entityID(item); ok {
				targets[id] = true
			}
		}
	}
	// Reverse direction: instances that list this firewall.
	for _, inst := range ec.ResourcesOfType(domain.ResourceTypeInstance) {
		if attachedFirewallIDs(ec, inst)[res.ID] {
			targets[inst.ID] = true
		}
	}
	if len(targets) == 0 {
		return nonCompliant("Firewall %s protects no resources", res.Label)
	}
	return compliant("Firewall protects %d resource(s)", len(targets))
}

func checkNoDuplicateRules(_ *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	inbound, okIn := inboundRules(res)
	outbound, okOut := outboundRules(res)
	if !okIn && !okOut {
		return notApplicable("Firewall rules have not been synced for %s", res.Label)
	}

	var duplicates []string
	for direction, rules := range map[string][]firewallRule{"inbound": inbound, "outbound": outbound} {
		seen := map[string][]string{}
		for _, fr := range rules {
			fp := fr.fingerprint()
			seen[fp] = append(seen[fp], fr.displayName())
		}
		for _, labels := range seen {
			if len(labels) > 1 {
				duplicates = append(duplicates, fmt.Sprintf("%s: %s", direction, strings.Join(labels, ", ")))
			}
		}
	}
	if len(duplicates) == 0 {
		return compliant("No duplicate firewall rules")
	}
	sort.Strings(duplicates)
	return nonCompliant("Duplicate firewall rules found (%s)", strings.Join(duplicates, "; "))
}

func checkRuleDescriptions(_ *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	inbound, okIn := inboundRules(res)
	outbound, okOut := outboundRules(res)
	if !okIn && !okOut {
		return notApplicable("Firewall rules have not been synced for %s", res.Label)
	}
	var missing []string
	for _, fr := range append(inbound, outbound...) {
		if strings.TrimSpace(fr.Description) == "" {
			missing = append(missing, fr.displayName())
		}
	}
	if len(missing) == 0 {
		return compliant("Every firewall rule has a description")
	}
	return nonCompliant("Rules missing a description: %s", strings.Join(missing, ", "))
}
