package models

import "time"

// IncidentSeverity grades how serious an incident is.
type IncidentSeverity string

const (
	IncidentSeverityLow    IncidentSeverity = "LOW"
	IncidentSeverityMedium IncidentSeverity = "MEDIUM"
	IncidentSeverityHigh   IncidentSeverity = "HIGH"
)

// Incident is an immutable behavioural note. It is not part of the point
// ledger but appears in the unified activity feed.
type Incident struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	Severity    IncidentSeverity `db:"severity" json:"severity"`
	Description string           `db:"description" json:"description"`
	OccurredAt  time.Time        `db:"occurred_at" json:"occurred_at"`
	CreatedBy   string           `db:"created_by" json:"created_by"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// IncidentFilter restricts incident listings.
type IncidentFilter struct {
	StudentID  string
	Severities []IncidentSeverity
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
