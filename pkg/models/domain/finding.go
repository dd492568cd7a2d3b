package domain

import "time"

type FindingStatus string

const (
	StatusCompliant     FindingStatus = "compliant"
	StatusNonCompliant  FindingStatus = "non_compliant"
	StatusNotApplicable FindingStatus = "not_applicable"
)

// Outcome is the result of evaluating one condition against one resource:
// a status plus a human-readable explanation. Detail is never empty.
type Outcome struct {
	Status FindingStatus
	Detail string
}

// Finding records the outcome of one rule for one resource, or for the
// account as a whole when ResourceID is empty. The finding set for an
// account is replaced wholesale on every evaluation run; acknowledgement
// state keyed by (RuleID, ResourceID) survives the replacement.
type Finding struct {
	ID               string
	RuleID           string
	ResourceID       string
	AccountID        string
	Status           FindingStatus
	Detail           string
	EvaluatedAt      time.Time
	Acknowledged     bool
	AcknowledgedAt   *time.Time
	AcknowledgedBy   string
	AcknowledgedNote string
}

// Acknowledgement is the durable part of a finding that survives the
// delete-and-recreate cycle between evaluation runs.
type Acknowledgement struct {
	RuleID     string
	ResourceID string
	At         time.Time
	By         string
	Note       string
}

// FindingNote is one entry of the append-only follow-up thread on a finding.
type FindingNote struct {
	ID        string
	FindingID string
	Author    string
	Text      string
	CreatedAt time.Time
}
