package engine

import (
	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

const defaultMinNodeCount = 3

func checkClusterMinNodeCount(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	pools, ok := specList(res.Specs, "node_pools")
	if !ok {
		return notApplicable("Node pools have not been synced for %s", res.Label)
	}
	total := 0
	for _, item := range pools {
		pool, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if count, ok := specNumber(pool, "count"); ok {
			total += int(count)
		}
	}
	minNodes := cfgInt(rule.ConditionConfig, "min_nodes", defaultMinNodeCount)
	if total < minNodes {
		return nonCompliant("Cluster %s has %d nodes, minimum is %d", res.Label, total, minNodes)
	}
	return compliant("Cluster has %d nodes", total)
}

func checkClusterHighAvailability(_ *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	controlPlane, ok := specMap(res.Specs, "control_plane")
	if !ok {
		return notApplicable("Control plane state has not been synced for %s", res.Label)
	}
	ha, ok := specBool(controlPlane, "high_availability")
	if !ok {
		return notApplicable("High availability state has not been synced for %s", res.Label)
	}
	if ha {
		return compliant("Control plane high availability is enabled")
	}
	return nonCompliant("Control plane high availability is disabled for %s", res.Label)
}

func checkClusterAuditLogs(_ *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	controlPlane, ok := specMap(res.Specs, "control_plane")
	if !ok {
		return notApplicable("Control plane state has not been synced for %s", res.Label)
	}
	enabled, ok := specBool(controlPlane, "audit_logs_enabled")
	if !ok {
		return notApplicable("Audit log state has not been synced for %s", res.Label)
	}
	if enabled {
		return compliant("Control plane audit logs are enabled")
	}
	return nonCompliant("Control plane audit logs are disabled for %s", res.Label)
}
