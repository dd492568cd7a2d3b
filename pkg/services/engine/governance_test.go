package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

func TestPlanTier(t *testing.T) {
	tests := []struct {
		plan string
		want string
	}{
		{"g6-standard-2", "standard"},
		{"g7-highmem-16", "highmem"},
		{"g6-dedicated-edge-1", "dedicated-edge"},
		{"g6-nanode-1", "nanode"},
		{"standard", "standard"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			assert.Equal(t, tt.want, planTier(tt.plan))
		})
	}
}

func TestCheckApprovedRegions(t *testing.T) {
	rule := domain.Rule{
		ID:              "r1",
		ConditionType:   domain.ConditionApprovedRegions,
		ConditionConfig: map[string]any{"regions": []any{"eu-west", "eu-central"}},
	}

	res := domain.Resource{ID: "42", Type: domain.ResourceTypeInstance, Label: "web-1", Region: "eu-west"}
	assert.Equal(t, domain.StatusCompliant, checkApprovedRegions(testContext(), rule, res).Status)

	res.Region = "EU-CENTRAL"
	assert.Equal(t, domain.StatusCompliant, checkApprovedRegions(testContext(), rule, res).Status)

	res.Region = "us-east"
	outcome := checkApprovedRegions(testContext(), rule, res)
	assert.Equal(t, domain.StatusNonCompliant, outcome.Status)
	assert.Contains(t, outcome.Detail, "us-east")

	res.Region = ""
	assert.Equal(t, domain.StatusNotApplicable, checkApprovedRegions(testContext(), rule, res).Status)

	bare := domain.Rule{ID: "r1", ConditionType: domain.ConditionApprovedRegions}
	res.Region = "eu-west"
	assert.Equal(t, domain.StatusNotApplicable, checkApprovedRegions(testContext(), bare, res).Status)
}

func TestCheckApprovedPlanTiers(t *testing.T) {
	rule := domain.Rule{
		ID:            "r1",
		ConditionType: domain.ConditionApprovedPlanTiers,
		ConditionConfig: map[string]any{
			"tag":   "production",
			"tiers": []any{"dedicated", "highmem"},
		},
	}

	tagged := domain.Resource{
		ID: "42", Type: domain.ResourceTypeInstance, Label: "web-1",
		PlanType: "g6-dedicated-8",
		Specs:    map[string]any{"tags": []any{"production"}},
	}
	assert.Equal(t, domain.StatusCompliant, checkApprovedPlanTiers(testContext(), rule, tagged).Status)

	tagged.PlanType = "g6-standard-2"
	outcome := checkApprovedPlanTiers(testContext(), rule, tagged)
	assert.Equal(t, domain.StatusNonCompliant, outcome.Status)
	assert.Contains(t, outcome.Detail, "standard")

	// Untagged resources are out of scope for a tag-gated rule.
	untagged := tagged
	untagged.Specs = map[string]any{"tags": []any{"staging"}}
	assert.Equal(t, domain.StatusNotApplicable, checkApprovedPlanTiers(testContext(), rule, untagged).Status)

	// Sub-tier prefixes of an approved tier pass.
	edge := tagged
	edge.PlanType = "g6-dedicated-edge-1"
	assert.Equal(t, domain.StatusCompliant, checkApprovedPlanTiers(testContext(), rule, edge).Status)

	incomplete := domain.Rule{
		ID:              "r1",
		ConditionType:   domain.ConditionApprovedPlanTiers,
		ConditionConfig: map[string]any{"tiers": []any{"dedicated"}},
	}
	assert.Equal(t, domain.StatusNotApplicable, checkApprovedPlanTiers(testContext(), incomplete, tagged).Status)
}
