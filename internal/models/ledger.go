package models

import "time"

// PointEvent is an immutable ledger entry. Rows are never updated or deleted
// after insertion; corrections happen through new offsetting events.
type PointEvent struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	CategoryID string    `db:"category_id" json:"category_id"`
	Delta      int       `db:"delta" json:"delta"`
	Note       string    `db:"note" json:"note"`
	EventTime  time.Time `db:"event_time" json:"event_time"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// PointEventFilter restricts ledger history listings.
type PointEventFilter struct {
	StudentID  string
	CategoryID string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// CalendarDay is one row of the points calendar: a calendar day and the sum
// of all point deltas recorded on it. Days without activity carry a zero.
type CalendarDay struct {
	Day        time.Time `db:"day" json:"day"`
	TotalDelta int       `db:"total_delta" json:"total_delta"`
}
