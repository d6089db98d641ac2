package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-points-api/internal/models"
)

type mockLinks struct {
	linked map[string]string
	err    error
}

func (m *mockLinks) IsLinked(ctx context.Context, guardianID, studentID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.linked[guardianID] == studentID, nil
}

func TestPolicyHasCapability(t *testing.T) {
	policy := NewPolicy(nil)

	assert.True(t, policy.HasCapability(models.RoleAdmin, OpManageStudents))
	assert.True(t, policy.HasCapability(models.RoleStaff, OpAwardPoints))
	assert.False(t, policy.HasCapability(models.RoleStaff, OpManageItems))
	assert.False(t, policy.HasCapability(models.RoleStaff, OpViewAudit))
	assert.True(t, policy.HasCapability(models.RoleStudent, OpRedeemItem))
	assert.False(t, policy.HasCapability(models.RoleGuardian, OpRedeemItem))
	assert.False(t, policy.HasCapability(models.UserRole("INTERN"), OpViewItems))
}

func TestPolicyCanPerformAnyScope(t *testing.T) {
	policy := NewPolicy(nil)
	ctx := context.Background()

	ok, err := policy.CanPerform(ctx, Identity{UserID: "u-1", Role: models.RoleStaff}, OpAwardPoints, Target{StudentID: "student-1"})
	require.NoError(t, err)
	assert.True(t, ok)

	// scopeAny grants ignore the target entirely.
	ok, err = policy.CanPerform(ctx, Identity{UserID: "u-1", Role: models.RoleAdmin}, OpViewAudit, Target{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPolicyCanPerformStudentOwnScope(t *testing.T) {
	policy := NewPolicy(nil)
	ctx := context.Background()
	self := Identity{UserID: "u-2", Role: models.RoleStudent, StudentID: "student-1"}

	cases := []struct {
		name   string
		target Target
		want   bool
	}{
		{name: "own record", target: Target{StudentID: "student-1"}, want: true},
		{name: "someone else", target: Target{StudentID: "student-2"}, want: false},
		{name: "no target", target: Target{}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := policy.CanPerform(ctx, self, OpViewBalance, tc.target)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}

	// A student account missing its student link never passes an own-scope check.
	unlinked := Identity{UserID: "u-3", Role: models.RoleStudent}
	ok, err := policy.CanPerform(ctx, unlinked, OpViewBalance, Target{StudentID: "student-1"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicyCanPerformGuardianOwnScope(t *testing.T) {
	links := &mockLinks{linked: map[string]string{"guardian-1": "student-1"}}
	policy := NewPolicy(links)
	ctx := context.Background()
	guardian := Identity{UserID: "u-4", Role: models.RoleGuardian, GuardianID: "guardian-1"}

	ok, err := policy.CanPerform(ctx, guardian, OpViewHistory, Target{StudentID: "student-1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = policy.CanPerform(ctx, guardian, OpViewHistory, Target{StudentID: "student-9"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicyGuardianWithoutLinksDenied(t *testing.T) {
	policy := NewPolicy(nil)
	guardian := Identity{UserID: "u-4", Role: models.RoleGuardian, GuardianID: "guardian-1"}

	ok, err := policy.CanPerform(context.Background(), guardian, OpViewBalance, Target{StudentID: "student-1"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicyGuardianLinkLookupError(t *testing.T) {
	links := &mockLinks{err: errors.New("db down")}
	policy := NewPolicy(links)
	guardian := Identity{UserID: "u-4", Role: models.RoleGuardian, GuardianID: "guardian-1"}

	ok, err := policy.CanPerform(context.Background(), guardian, OpViewBalance, Target{StudentID: "student-1"})
	require.Error(t, err)
	assert.False(t, ok)
}

func TestPolicyUnknownRoleDenied(t *testing.T) {
	policy := NewPolicy(nil)

	ok, err := policy.CanPerform(context.Background(), Identity{UserID: "u-5", Role: models.UserRole("INTERN")}, OpViewItems, Target{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPolicyDeniesUngrantedOperation(t *testing.T) {
	policy := NewPolicy(nil)

	ok, err := policy.CanPerform(context.Background(), Identity{UserID: "u-6", Role: models.RoleStudent, StudentID: "student-1"}, OpAwardPoints, Target{StudentID: "student-1"})
	require.NoError(t, err)
	assert.False(t, ok)
}
