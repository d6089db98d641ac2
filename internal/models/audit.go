package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionAwardPoints    = "AWARD_POINTS"
	AuditActionRedeemItem     = "REDEEM_ITEM"
	AuditActionIncidentCreate = "INCIDENT_CREATE"
)

// AuditLog represents an audit trail record. Entries are append-only and are
// written in the same transaction as the ledger mutation they describe.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	ActorID   *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	Resource  string    `db:"resource" json:"resource"`
	TargetID  *string   `db:"target_id" json:"target_id,omitempty"`
	Meta      []byte    `db:"meta" json:"meta,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AuditLogFilter restricts audit trail listings.
type AuditLogFilter struct {
	ActorID  string
	Action   string
	TargetID string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}
