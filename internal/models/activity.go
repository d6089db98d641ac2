package models

import "time"

// ActivityType discriminates entries in the merged activity feed.
type ActivityType string

const (
	ActivityPointEvent ActivityType = "point_event"
	ActivityRedemption ActivityType = "redemption"
	ActivityIncident   ActivityType = "incident"
)

// ActivityEntry is one row of the merged recent-activity feed. The feed is a
// read-time union of point events, redemptions and incidents; there is no
// materialized feed table.
type ActivityEntry struct {
	Type        ActivityType `db:"type" json:"type"`
	RefID       string       `db:"ref_id" json:"ref_id"`
	StudentID   string       `db:"student_id" json:"student_id"`
	StudentName string       `db:"student_name" json:"student_name"`
	Points      *int         `db:"points" json:"points,omitempty"`
	Description string       `db:"description" json:"description"`
	At          time.Time    `db:"at" json:"at"`
}
