package models

import "time"

// StoreItem is a catalog entry students can redeem points for. Stock is the
// only field mutated by the redemption engine and never drops below zero.
type StoreItem struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Cost        int       `db:"cost" json:"cost"`
	Stock       int       `db:"stock" json:"stock"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StoreItemFilter captures listing criteria for store items.
type StoreItemFilter struct {
	Active   *bool
	InStock  *bool
	Search   string
	Page     int
	PageSize int
}

// Redemption is an immutable record of a student spending points on an item.
// CostAtTx snapshots the item cost at redemption time so later price changes
// do not rewrite history.
type Redemption struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	ItemID     string    `db:"item_id" json:"item_id"`
	CostAtTx   int       `db:"cost_at_tx" json:"cost_at_tx"`
	RedeemedAt time.Time `db:"redeemed_at" json:"redeemed_at"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
}

// RedemptionFilter restricts redemption history listings.
type RedemptionFilter struct {
	StudentID string
	ItemID    string
	Page      int
	PageSize  int
}
