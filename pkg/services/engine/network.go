package engine

import (
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// defaultSensitivePorts is what firewall_no_open_inbound flags when the rule
// config does not name its own port list.
var defaultSensitivePorts = []int{22, 3389, 3306, 5432, 6379, 27017}

// wildcardCIDRs are the source ranges that make an inbound rule "open to the
// internet". 2000::/3 is the IPv6 global unicast default-route prefix.
var wildcardCIDRs = map[string]bool{
	"0.0.0.0/0": true,
	"::/0":      true,
	"2000::/3":  true,
}

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

type portRange struct {
	lo, hi int
}

// parsePortRanges parses the firewall port grammar: a comma-separated list
// of single ports and lo-hi ranges. An empty string means all ports.
func parsePortRanges(ports string) []portRange {
	ports = strings.TrimSpace(ports)
	if ports == "" {
		return []portRange{{lo: 1, hi: 65535}}
	}
	var out []portRange
	for _, part := range strings.Split(ports, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			l, errL := strconv.Atoi(strings.TrimSpace(lo))
			h, errH := strconv.Atoi(strings.TrimSpace(hi))
			if errL == nil && errH == nil && l <= h {
				out = append(out, portRange{lo: l, hi: h})
			}
			continue
		}
		if p, err := strconv.Atoi(part); err == nil {
			out = append(out, portRange{lo: p, hi: p})
		}
	}
	return out
}

// coversAllPorts reports whether a rule's port spec means "every port":
// protocol ALL, an empty spec, or the full 1-65535 range.
func coversAllPorts(protocol, ports string) bool {
	if strings.EqualFold(protocol, "ALL") {
		return true
	}
	ports = strings.TrimSpace(ports)
	if ports == "" || ports == "1-65535" {
		return true
	}
	return false
}

func coversPort(protocol, ports string, port int) bool {
	if coversAllPorts(protocol, ports) {
		return true
	}
	for _, r := range parsePortRanges(ports) {
		if port >= r.lo && port <= r.hi {
			return true
		}
	}
	return false
}

// isWildcardSource matches the exact full-wildcard CIDRs, not any large
// range.
func isWildcardSource(cidr string) bool {
	return wildcardCIDRs[strings.TrimSpace(cidr)]
}

// isPrivateSource classifies a CIDR into the RFC 1918 ranges by its network
// address.
func isPrivateSource(cidr string) bool {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		addr, err := netip.ParseAddr(strings.TrimSpace(cidr))
		if err != nil {
			return false
		}
		prefix = netip.PrefixFrom(addr, addr.BitLen())
	}
	for _, private := range privateRanges {
		if private.Contains(prefix.Addr()) {
			return true
		}
	}
	return false
}

func checkNoOpenInbound(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	rules, ok := inboundRules(res)
	if !ok {
		return notApplicable("Firewall rules have not been synced for %s", res.Label)
	}
	sensitive := cfgIntList(rule.ConditionConfig, "ports", defaultSensitivePorts)

	exposed := map[int][]string{}
	for _, fr := range rules {
		if !strings.EqualFold(fr.Action, "ACCEPT") || !fr.hasWildcardSource() {
			continue
		}
		for _, port := range sensitive {
			if coversPort(fr.Protocol, fr.Ports, port) {
				exposed[port] = append(exposed[port], fr.displayName())
			}
		}
	}
	if len(exposed) == 0 {
		return compliant("No sensitive port is open to the internet")
	}

	ports := make([]int, 0, len(exposed))
	for p := range exposed {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	var parts []string
	for _, p := range ports {
		parts = append(parts, fmt.Sprintf("%d (%s)", p, strings.Join(exposed[p], ", ")))
	}
	return nonCompliant("Sensitive ports open to the internet: %s", strings.Join(parts, "; "))
}

func checkRFC1918Sources(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	rules, ok := inboundRules(res)
	if !ok {
		return notApplicable("Firewall rules have not been synced for %s", res.Label)
	}
	allowed := map[string]bool{}
	for _, c := range cfgStringList(rule.ConditionConfig, "allowed_cidrs") {
		allowed[strings.TrimSpace(c)] = true
	}

	var offenders []string
	for _, fr := range rules {
		if !strings.EqualFold(fr.Action, "ACCEPT") {
			continue
		}
		for _, cidr := range fr.IPv4 {
			if isPrivateSource(cidr) && !allowed[strings.TrimSpace(cidr)] {
				offenders = append(offenders, fmt.Sprintf("%s from %s", fr.displayName(), cidr))
			}
		}
	}
	if len(offenders) == 0 {
		return compliant("No inbound rule accepts traffic from unapproved private ranges")
	}
	return nonCompliant("Inbound rules accept RFC 1918 sources: %s", strings.Join(offenders, "; "))
}

func checkAllPortsAllowed(_ *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	rules, ok := inboundRules(res)
	if !ok {
		return notApplicable("Firewall rules have not been synced for %s", res.Label)
	}
	var offenders []string
	for _, fr := range rules {
		if strings.EqualFold(fr.Action, "ACCEPT") && fr.hasWildcardSource() && coversAllPorts(fr.Protocol, fr.Ports) {
			offenders = append(offenders, fr.displayName())
		}
	}
	if len(offenders) == 0 {
		return compliant("No rule opens every port to the internet")
	}
	return nonCompliant("Rules open all ports to the internet: %s", strings.Join(offenders, ", "))
}

func checkFirewallPolicy(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	wantInbound := cfgString(rule.ConditionConfig, "inbound_policy", "DROP")
	wantOutbound := cfgString(rule.ConditionConfig, "outbound_policy", "")

	inbound, okIn := specString(res.Specs, "inbound_policy")
	if !okIn {
		return notApplicable("Firewall policy has not been synced for %s", res.Label)
	}

	var violations []string
	if wantInbound != "" && !strings.EqualFold(inbound, wantInbound) {
		violations = append(violations, fmt.Sprintf("inbound policy is %s, expected %s", inbound, wantInbound))
	}
	if wantOutbound != "" {
		outbound, okOut := specString(res.Specs, "outbound_policy")
		if !okOut {
			return notApplicable("Firewall outbound policy has not been synced for %s", res.Label)
		}
		if !strings.EqualFold(outbound, wantOutbound) {
			violations = append(violations, fmt.Sprintf("outbound policy is %s, expected %s", outbound, wantOutbound))
		}
	}
	if len(violations) == 0 {
		return compliant("Firewall default policies match the required configuration")
	}
	return nonCompliant("Firewall policy violation: %s", strings.Join(violations, "; "))
}
