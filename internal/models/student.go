package models

import "time"

// Student represents a club member registered in the program. A student
// carries no stored balance; the balance is always derived from the ledger.
type Student struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Grade     string    `db:"grade" json:"grade"`
	Cohort    string    `db:"cohort" json:"cohort"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Grade     string
	Cohort    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentBalance pairs a student with its derived point balance.
type StudentBalance struct {
	StudentID string `json:"student_id"`
	Balance   int    `json:"balance"`
}
