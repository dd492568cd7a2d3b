package engine

import (
	"strings"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

const defaultBackupMaxAgeDays = 3

func checkBackupRecency(ec *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	backups, ok := specMap(res.Specs, "backups")
	if !ok {
		return notApplicable("Backup state has not been synced for %s", res.Label)
	}
	enabled, ok := specBool(backups, "enabled")
	if !ok {
		return notApplicable("Backup state has not been synced for %s", res.Label)
	}
	if !enabled {
		return nonCompliant("Backups are disabled for %s", res.Label)
	}

	lastRaw, ok := specString(backups, "last_successful")
	if !ok || lastRaw == "" {
		// Enabled but never completed: not yet synced, not a violation.
		return notApplicable("Backups enabled but no successful backup recorded yet for %s", res.Label)
	}
	last, err := time.Parse(time.RFC3339, lastRaw)
	if err != nil {
		return notApplicable("Unparseable backup timestamp %q for %s", lastRaw, res.Label)
	}

	maxAgeDays := cfgInt(rule.ConditionConfig, "max_age_days", defaultBackupMaxAgeDays)
	age := ec.Now.Sub(last)
	if age > time.Duration(maxAgeDays)*24*time.Hour {
		return nonCompliant("Last successful backup for %s is %.0f days old (limit %d)",
			res.Label, age.Hours()/24, maxAgeDays)
	}
	return compliant("Last successful backup is %.1f days old", age.Hours()/24)
}

func checkDiskEncryption(_ *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	state, ok := specString(res.Specs, "disk_encryption")
	if !ok {
		return notApplicable("Disk encryption state has not been synced for %s", res.Label)
	}
	if strings.EqualFold(state, "enabled") {
		return compliant("Disk encryption is enabled")
	}
	return nonCompliant("Disk encryption is %s for %s", state, res.Label)
}

func checkInstanceNotOffline(_ *EvalContext, rule domain.Rule, res domain.Resource) domain.Outcome {
	if res.Status == "" {
		return notApplicable("Status has not been synced for %s", res.Label)
	}
	forbidden := cfgStringList(rule.ConditionConfig, "forbidden_statuses")
	if len(forbidden) == 0 {
		forbidden = []string{"offline"}
	}
	for _, f := range forbidden {
		if strings.EqualFold(res.Status, f) {
			return nonCompliant("Instance %s is %s", res.Label, res.Status)
		}
	}
	return compliant("Instance status is %s", res.Status)
}

func checkInstanceLock(_ *EvalContext, _ domain.Rule, res domain.Resource) domain.Outcome {
	locked, ok := specBool(res.Specs, "lock_enabled")
	if !ok {
		return notApplicable("Lock state has not been synced for %s", res.Label)
	}
	if locked {
		return compliant("Deletion lock is configured")
	}
	return nonCompliant("No deletion lock is configured for %s", res.Label)
}
