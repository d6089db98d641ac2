package authz

import (
	"context"

	"github.com/noah-isme/gema-points-api/internal/models"
)

// Operation names a guarded action on the API.
type Operation string

const (
	OpAwardPoints      Operation = "points.award"
	OpViewBalance      Operation = "points.balance.view"
	OpViewHistory      Operation = "points.history.view"
	OpExportStatement  Operation = "points.statement.export"
	OpRedeemItem       Operation = "store.redeem"
	OpViewItems        Operation = "store.items.view"
	OpManageItems      Operation = "store.items.manage"
	OpViewStudents     Operation = "students.view"
	OpManageStudents   Operation = "students.manage"
	OpViewCategories   Operation = "categories.view"
	OpManageCategories Operation = "categories.manage"
	OpViewIncidents    Operation = "incidents.view"
	OpCreateIncident   Operation = "incidents.create"
	OpViewGuardians    Operation = "guardians.view"
	OpManageGuardians  Operation = "guardians.manage"
	OpViewCalendar     Operation = "activity.calendar.view"
	OpViewFeed         Operation = "activity.feed.view"
	OpViewAudit        Operation = "audit.view"
)

// Identity is the acting caller, extracted from validated JWT claims.
type Identity struct {
	UserID     string
	Role       models.UserRole
	StudentID  string
	GuardianID string
}

// Target is the row-level subject of an operation. A zero Target means the
// operation is not scoped to a particular student.
type Target struct {
	StudentID string
}

// scope controls how far a granted capability reaches.
type scope int

const (
	// scopeAny grants the operation on every target.
	scopeAny scope = iota
	// scopeOwn restricts the operation to the caller's own student record,
	// or to linked students for guardians.
	scopeOwn
)

// LinkChecker resolves guardian-student links for row-level checks.
type LinkChecker interface {
	IsLinked(ctx context.Context, guardianID, studentID string) (bool, error)
}

// capabilities is the static capability table. A missing entry means the role
// cannot perform the operation at all.
var capabilities = map[models.UserRole]map[Operation]scope{
	models.RoleAdmin: {
		OpAwardPoints:      scopeAny,
		OpViewBalance:      scopeAny,
		OpViewHistory:      scopeAny,
		OpExportStatement:  scopeAny,
		OpRedeemItem:       scopeAny,
		OpViewItems:        scopeAny,
		OpManageItems:      scopeAny,
		OpViewStudents:     scopeAny,
		OpManageStudents:   scopeAny,
		OpViewCategories:   scopeAny,
		OpManageCategories: scopeAny,
		OpViewIncidents:    scopeAny,
		OpCreateIncident:   scopeAny,
		OpViewGuardians:    scopeAny,
		OpManageGuardians:  scopeAny,
		OpViewCalendar:     scopeAny,
		OpViewFeed:         scopeAny,
		OpViewAudit:        scopeAny,
	},
	models.RoleStaff: {
		OpAwardPoints:     scopeAny,
		OpViewBalance:     scopeAny,
		OpViewHistory:     scopeAny,
		OpExportStatement: scopeAny,
		OpRedeemItem:      scopeAny,
		OpViewItems:       scopeAny,
		OpViewStudents:    scopeAny,
		OpViewCategories:  scopeAny,
		OpViewIncidents:   scopeAny,
		OpCreateIncident:  scopeAny,
		OpViewGuardians:   scopeAny,
		OpViewCalendar:    scopeAny,
		OpViewFeed:        scopeAny,
	},
	models.RoleGuardian: {
		OpViewBalance:     scopeOwn,
		OpViewHistory:     scopeOwn,
		OpExportStatement: scopeOwn,
		OpViewItems:       scopeAny,
		OpViewCategories:  scopeAny,
		OpViewIncidents:   scopeOwn,
		OpViewCalendar:    scopeOwn,
	},
	models.RoleStudent: {
		OpViewBalance:     scopeOwn,
		OpViewHistory:     scopeOwn,
		OpExportStatement: scopeOwn,
		OpRedeemItem:      scopeOwn,
		OpViewItems:       scopeAny,
		OpViewCategories:  scopeAny,
		OpViewCalendar:    scopeOwn,
	},
}

// Policy answers capability questions for authenticated callers.
type Policy struct {
	links LinkChecker
}

// NewPolicy constructs a Policy. links may be nil when guardians are not
// served, in which case guardian row-level checks always deny.
func NewPolicy(links LinkChecker) *Policy {
	return &Policy{links: links}
}

// HasCapability reports whether the role holds op at any scope. Row-level
// checks still apply through CanPerform when a target is known.
func (p *Policy) HasCapability(role models.UserRole, op Operation) bool {
	grants, ok := capabilities[role]
	if !ok {
		return false
	}
	_, ok = grants[op]
	return ok
}

// CanPerform reports whether identity may run op against target. Role grants
// come from the static table; scopeOwn grants additionally require the target
// student to be the caller's own record or, for guardians, a linked student.
func (p *Policy) CanPerform(ctx context.Context, identity Identity, op Operation, target Target) (bool, error) {
	grants, ok := capabilities[identity.Role]
	if !ok {
		return false, nil
	}
	sc, ok := grants[op]
	if !ok {
		return false, nil
	}
	if sc == scopeAny {
		return true, nil
	}

	// scopeOwn needs a concrete student target to check against.
	if target.StudentID == "" {
		return false, nil
	}

	switch identity.Role {
	case models.RoleStudent:
		return identity.StudentID != "" && identity.StudentID == target.StudentID, nil
	case models.RoleGuardian:
		if identity.GuardianID == "" || p.links == nil {
			return false, nil
		}
		return p.links.IsLinked(ctx, identity.GuardianID, target.StudentID)
	default:
		return false, nil
	}
}
