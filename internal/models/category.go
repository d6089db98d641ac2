package models

import "time"

// PointCategory is a named rule bucket whose inclusive bounds constrain the
// delta of any single award recorded against it.
type PointCategory struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	MinValue    int       `db:"min_value" json:"min_value"`
	MaxValue    int       `db:"max_value" json:"max_value"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PointCategoryFilter captures listing criteria for categories.
type PointCategoryFilter struct {
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
