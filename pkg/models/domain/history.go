package domain

import "time"

// RuleScore is the per-rule slice of a run's score breakdown, computed over
// the same acknowledged-excluded finding set as the aggregate score.
type RuleScore struct {
	RuleID        string
	RuleName      string
	Compliant     int
	NonCompliant  int
	NotApplicable int
}

// ScoreHistoryEntry is one append-only row per evaluation run per account.
// Score is nil when no finding counted towards the denominator.
type ScoreHistoryEntry struct {
	AccountID     string
	RunAt         time.Time
	Compliant     int
	NonCompliant  int
	NotApplicable int
	Acknowledged  int
	Score         *float64
	RuleBreakdown []RuleScore
}

// HistoricalFinding is a finding denormalized with its rule's name and
// severity so a timeline can render without joining historical catalog state.
type HistoricalFinding struct {
	RuleID       string
	RuleName     string
	Severity     Severity
	Status       FindingStatus
	Detail       string
	Acknowledged bool
}

// ResourceHistoryEntry is one append-only row per (account, resource, run).
type ResourceHistoryEntry struct {
	AccountID  string
	ResourceID string
	RunAt      time.Time
	Findings   []HistoricalFinding
}

// RunSummary is what an evaluation run reports back to its caller.
type RunSummary struct {
	AccountID     string
	RunAt         time.Time
	Compliant     int
	NonCompliant  int
	NotApplicable int
	Acknowledged  int
	Score         *float64
	FindingCount  int
}
