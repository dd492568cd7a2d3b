package store

import "time"

// Row shapes for the sqlite stores. JSON-bag columns (Specs, ConditionConfig,
// RuleBreakdown, Findings) are marshalled at the store boundary.

type ResourceRow struct {
	ID          string
	AccountID   string
	Type        string
	Label       string
	Region      string
	PlanType    string
	MonthlyCost float64
	Status      string
	Specs       map[string]any
}

type RuleRow struct {
	ID              string
	Name            string
	Description     string
	ResourceTypes   []string
	ConditionType   string
	ConditionConfig map[string]any
	Severity        string
	IsActive        bool
	AccountID       string
	IsBuiltin       bool
}

type RuleOverrideRow struct {
	AccountID          string
	RuleID             string
	IsActive           bool
	AppliedByProfileID string
}

type ProfileRow struct {
	ID             string
	Name           string
	Description    string
	ConditionTypes []string
}

type FindingRow struct {
	ID               string
	RuleID           string
	ResourceID       string
	AccountID        string
	Status           string
	Detail           string
	EvaluatedAt      time.Time
	Acknowledged     bool
	AcknowledgedAt   *time.Time
	AcknowledgedBy   string
	AcknowledgedNote string
}

type FindingNoteRow struct {
	ID        string
	FindingID string
	Author    string
	Text      string
	CreatedAt time.Time
}

type ScoreHistoryRow struct {
	AccountID     string
	RunAt         time.Time
	Compliant     int
	NonCompliant  int
	NotApplicable int
	Acknowledged  int
	Score         *float64
	RuleBreakdown []RuleScoreEntry
}

type RuleScoreEntry struct {
	RuleID        string `json:"rule_id"`
	RuleName      string `json:"rule_name"`
	Compliant     int    `json:"compliant"`
	NonCompliant  int    `json:"non_compliant"`
	NotApplicable int    `json:"not_applicable"`
}

type ResourceHistoryRow struct {
	AccountID  string
	ResourceID string
	RunAt      time.Time
	Findings   []HistoricalFindingEntry
}

type HistoricalFindingEntry struct {
	RuleID       string `json:"rule_id"`
	RuleName     string `json:"rule_name"`
	Severity     string `json:"severity"`
	Status       string `json:"status"`
	Detail       string `json:"detail"`
	Acknowledged bool   `json:"acknowledged"`
}
