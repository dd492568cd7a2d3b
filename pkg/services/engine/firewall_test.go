package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

func TestAttachedFirewallIDs_UnionsDirectAndReverseReferences(t *testing.T) {
	instance := domain.Resource{
		ID:    "42",
		Type:  domain.ResourceTypeInstance,
		Label: "web-1",
		Specs: map[string]any{
			"firewalls": []any{map[string]any{"id": float64(100)}},
		},
	}
	firewall := domain.Resource{
		ID:    "100",
		Type:  domain.ResourceTypeFirewall,
		Label: "edge-fw",
		Specs: map[string]any{
			"entities": []any{map[string]any{"id": float64(42), "type": "linode"}},
		},
	}
	other := domain.Resource{
		ID:    "200",
		Type:  domain.ResourceTypeFirewall,
		Label: "db-fw",
		Specs: map[string]any{
			"entities": []any{map[string]any{"id": float64(42)}},
		},
	}

	ids := attachedFirewallIDs(testContext(instance, firewall, other), instance)
	assert.Equal(t, map[string]bool{"100": true, "200": true}, ids)
}

func TestCheckFirewallAttached(t *testing.T) {
	bare := domain.Resource{ID: "42", Type: domain.ResourceTypeInstance, Label: "web-1", Specs: map[string]any{}}
	rule := domain.Rule{ID: "r1", ConditionType: domain.ConditionFirewallAttached}

	outcome := checkFirewallAttached(testContext(bare), rule, bare)
	assert.Equal(t, domain.StatusNonCompliant, outcome.Status)

	protected := domain.Resource{
		ID: "43", Type: domain.ResourceTypeInstance, Label: "web-2",
		Specs: map[string]any{"firewalls": []any{map[string]any{"id": float64(100)}}},
	}
	outcome = checkFirewallAttached(testContext(protected), rule, protected)
	assert.Equal(t, domain.StatusCompliant, outcome.Status)
}

func TestCheckVolumeAttached(t *testing.T) {
	rule := domain.Rule{ID: "r1", ConditionType: domain.ConditionVolumeAttached}

	attached := domain.Resource{ID: "1", Type: domain.ResourceTypeVolume, Label: "data", Specs: map[string]any{"linode_id": float64(42)}}
	assert.Equal(t, domain.StatusCompliant, checkVolumeAttached(testContext(), rule, attached).Status)

	orphan := domain.Resource{ID: "2", Type: domain.ResourceTypeVolume, Label: "stale", Specs: map[string]any{"linode_id": float64(0)}}
	assert.Equal(t, domain.StatusNonCompliant, checkVolumeAttached(testContext(), rule, orphan).Status)

	unsynced := domain.Resource{ID: "3", Type: domain.ResourceTypeVolume, Label: "new", Specs: map[string]any{}}
	assert.Equal(t, domain.StatusNotApplicable, checkVolumeAttached(testContext(), rule, unsynced).Status)
}

func TestCheckFirewallHasTargets(t *testing.T) {
	rule := domain.Rule{ID: "r1", ConditionType: domain.ConditionFirewallHasTargets}

	empty := domain.Resource{ID: "100", Type: domain.ResourceTypeFirewall, Label: "idle-fw", Specs: map[string]any{"entities": []any{}}}
	assert.Equal(t, domain.StatusNonCompliant, checkFirewallHasTargets(testContext(empty), rule, empty).Status)

	// The firewall itself lists nothing, but an instance references it.
	instance := domain.Resource{
		ID: "42", Type: domain.ResourceTypeInstance, Label: "web-1",
		Specs: map[string]any{"firewalls": []any{map[string]any{"id": "100"}}},
	}
	assert.Equal(t, domain.StatusCompliant, checkFirewallHasTargets(testContext(empty, instance), rule, empty).Status)
}

func TestCheckNoDuplicateRules(t *testing.T) {
	rule := domain.Rule{ID: "r1", ConditionType: domain.ConditionFirewallNoDuplicateRules}

	res := firewallResource("100", "fw", []map[string]any{
		inboundRule("ACCEPT", "TCP", "443", "https", []string{"0.0.0.0/0"}),
		inboundRule("ACCEPT", "TCP", "443", "https-copy", []string{"0.0.0.0/0"}),
		inboundRule("ACCEPT", "TCP", "80", "http", []string{"0.0.0.0/0"}),
	})

	outcome := checkNoDuplicateRules(testContext(res), rule, res)
	assert.Equal(t, domain.StatusNonCompliant, outcome.Status)
	assert.Contains(t, outcome.Detail, "https")
	assert.Contains(t, outcome.Detail, "https-copy")
	assert.NotContains(t, outcome.Detail, "http,")

	clean := firewallResource("101", "fw2", []map[string]any{
		inboundRule("ACCEPT", "TCP", "443", "https", []string{"0.0.0.0/0"}),
		inboundRule("ACCEPT", "TCP", "80", "http", []string{"0.0.0.0/0"}),
	})
	assert.Equal(t, domain.StatusCompliant, checkNoDuplicateRules(testContext(clean), rule, clean).Status)
}

func TestCheckNoDuplicateRules_SourceOrderDoesNotMatter(t *testing.T) {
	rule := domain.Rule{ID: "r1", ConditionType: domain.ConditionFirewallNoDuplicateRules}

	res := firewallResource("100", "fw", []map[string]any{
		inboundRule("ACCEPT", "TCP", "22", "a", []string{"10.0.0.0/8", "192.168.0.0/16"}),
		inboundRule("ACCEPT", "TCP", "22", "b", []string{"192.168.0.0/16", "10.0.0.0/8"}),
	})
	assert.Equal(t, domain.StatusNonCompliant, checkNoDuplicateRules(testContext(res), rule, res).Status)
}

func TestCheckRuleDescriptions(t *testing.T) {
	rule := domain.Rule{ID: "r1", ConditionType: domain.ConditionFirewallRuleDescriptions}

	res := firewallResource("100", "fw", []map[string]any{
		inboundRule("ACCEPT", "TCP", "443", "https", []string{"0.0.0.0/0"}),
	})
	outcome := checkRuleDescriptions(testContext(res), rule, res)
	assert.Equal(t, domain.StatusNonCompliant, outcome.Status)
	assert.Contains(t, outcome.Detail, "https")

	described := firewallResource("101", "fw2", []map[string]any{
		inboundRule("ACCEPT", "TCP", "443", "https", []string{"0.0.0.0/0"}),
	})
	detail := described.Specs["inbound_rules_detail"].([]any)
	detail[0].(map[string]any)["description"] = "public TLS traffic"
	assert.Equal(t, domain.StatusCompliant, checkRuleDescriptions(testContext(described), rule, described).Status)
}
