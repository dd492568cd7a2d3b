package api

import "time"

type Finding struct {
	ID               string     `json:"id"`
	RuleID           string     `json:"rule_id"`
	RuleName         string     `json:"rule_name,omitempty"`
	ResourceID       string     `json:"resource_id,omitempty"`
	AccountID        string     `json:"account_id"`
	Status           string     `json:"status"`
	Severity         string     `json:"severity,omitempty"`
	Detail           string     `json:"detail"`
	EvaluatedAt      time.Time  `json:"evaluated_at"`
	Acknowledged     bool       `json:"acknowledged"`
	AcknowledgedAt   *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy   string     `json:"acknowledged_by,omitempty"`
	AcknowledgedNote string     `json:"acknowledged_note,omitempty"`
}

type FindingNote struct {
	ID        string    `json:"id"`
	FindingID string    `json:"finding_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Rule struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	ResourceTypes   []string       `json:"resource_types"`
	ConditionType   string         `json:"condition_type"`
	ConditionConfig map[string]any `json:"condition_config,omitempty"`
	Severity        string         `json:"severity"`
	Active          bool           `json:"active"`
	Scope           string         `json:"scope"`
	Builtin         bool           `json:"builtin"`
}

type RunSummary struct {
	AccountID     string    `json:"account_id"`
	RunAt         time.Time `json:"run_at"`
	Compliant     int       `json:"compliant"`
	NonCompliant  int       `json:"non_compliant"`
	NotApplicable int       `json:"not_applicable"`
	Acknowledged  int       `json:"acknowledged"`
	Score         *float64  `json:"score"`
	FindingCount  int       `json:"finding_count"`
}

type ScoreHistoryEntry struct {
	AccountID     string      `json:"account_id"`
	RunAt         time.Time   `json:"run_at"`
	Compliant     int         `json:"compliant"`
	NonCompliant  int         `json:"non_compliant"`
	NotApplicable int         `json:"not_applicable"`
	Acknowledged  int         `json:"acknowledged"`
	Score         *float64    `json:"score"`
	RuleBreakdown []RuleScore `json:"rule_breakdown"`
}

type RuleScore struct {
	RuleID        string `json:"rule_id"`
	RuleName      string `json:"rule_name"`
	Compliant     int    `json:"compliant"`
	NonCompliant  int    `json:"non_compliant"`
	NotApplicable int    `json:"not_applicable"`
}

type ResourceHistoryEntry struct {
	AccountID  string              `json:"account_id"`
	ResourceID string              `json:"resource_id"`
	RunAt      time.Time           `json:"run_at"`
	Findings   []HistoricalFinding `json:"findings"`
}

type HistoricalFinding struct {
	RuleID       string `json:"rule_id"`
	RuleName     string `json:"rule_name"`
	Severity     string `json:"severity"`
	Status       string `json:"status"`
	Detail       string `json:"detail"`
	Acknowledged bool   `json:"acknowledged"`
}

type AcknowledgeRequest struct {
	Author string `json:"author"`
	Note   string `json:"note,omitempty"`
}

type NoteRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type ProfileApplication struct {
	AccountID string `json:"account_id"`
	ProfileID string `json:"profile_id"`
	Enabled   int    `json:"enabled"`
	Disabled  int    `json:"disabled"`
}
