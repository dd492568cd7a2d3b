package domain

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

type ConditionType string

const (
	ConditionFirewallAttached         ConditionType = "firewall_attached"
	ConditionVolumeAttached           ConditionType = "volume_attached"
	ConditionFirewallHasTargets       ConditionType = "firewall_has_targets"
	ConditionFirewallNoOpenInbound    ConditionType = "firewall_no_open_inbound"
	ConditionFirewallRFC1918Sources   ConditionType = "firewall_rfc1918_sources"
	ConditionFirewallAllPortsAllowed  ConditionType = "firewall_all_ports_allowed"
	ConditionFirewallPolicy           ConditionType = "firewall_policy"
	ConditionFirewallNoDuplicateRules ConditionType = "firewall_no_duplicate_rules"
	ConditionFirewallRuleDescriptions ConditionType = "firewall_rule_descriptions"
	ConditionRequiredTags             ConditionType = "required_tags"
	ConditionBackupRecency            ConditionType = "backup_recency"
	ConditionDiskEncryption           ConditionType = "disk_encryption"
	ConditionInstanceNotOffline       ConditionType = "instance_not_offline"
	ConditionInstanceLock             ConditionType = "instance_lock"
	ConditionApprovedRegions          ConditionType = "approved_regions"
	ConditionApprovedPlanTiers        ConditionType = "approved_plan_tiers"
	ConditionDBAllowList              ConditionType = "db_allow_list"
	ConditionDBPublicAccess           ConditionType = "db_public_access"
	ConditionBucketACL                ConditionType = "bucket_acl"
	ConditionBucketCORS               ConditionType = "bucket_cors"
	ConditionClusterMinNodeCount      ConditionType = "lke_min_node_count"
	ConditionClusterHighAvailability  ConditionType = "lke_high_availability"
	ConditionClusterAuditLogs         ConditionType = "lke_audit_logs"
	ConditionClusterControlPlaneACL   ConditionType = "lke_control_plane_acl"
	ConditionAccountTFAEnabled        ConditionType = "account_tfa_enabled"
	ConditionLoginAllowedIPs          ConditionType = "login_allowed_ips"
	ConditionComposite                ConditionType = "composite"
)

// Rule is one compliance rule from the catalog. AccountID is empty for
// global rules, which are visible to every account; account-scoped rules are
// private to their owner. ConditionConfig is interpreted per ConditionType.
type Rule struct {
	ID              string
	Name            string
	Description     string
	ResourceTypes   []string
	ConditionType   ConditionType
	ConditionConfig map[string]any
	Severity        Severity
	IsActive        bool
	AccountID       string
	IsBuiltin       bool
}

// AppliesTo reports whether the rule targets the given resource type.
func (r Rule) AppliesTo(resourceType string) bool {
	for _, t := range r.ResourceTypes {
		if t == resourceType || t == ResourceTypeAllScopes {
			return true
		}
	}
	return false
}

// RuleOverride is the per-account activation layer on top of a rule's own
// IsActive default. At most one override exists per (account, rule).
type RuleOverride struct {
	AccountID          string
	RuleID             string
	IsActive           bool
	AppliedByProfileID string
}

// Profile is a named bundle of condition types. Applying it to an account
// replaces the whole override set: rules whose condition type is in the
// bundle become active, every other visible rule becomes inactive.
type Profile struct {
	ID             string
	Name           string
	Description    string
	ConditionTypes []ConditionType
}

func (p Profile) Includes(ct ConditionType) bool {
	for _, t := range p.ConditionTypes {
		if t == ct {
			return true
		}
	}
	return false
}
