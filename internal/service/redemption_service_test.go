package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

// mockEconomy backs both the store and ledger interfaces with shared state,
// so a committed redemption is visible to the next balance read the way a
// serialized transaction sequence would be.
type mockEconomy struct {
	items         map[string]*models.StoreItem
	balances      map[string]int
	redemptions   []*models.Redemption
	locksAcquired []string
}

func (m *mockEconomy) AcquireStudentLock(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	m.locksAcquired = append(m.locksAcquired, studentID)
	return nil
}

func (m *mockEconomy) LockItem(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StoreItem, error) {
	if item, ok := m.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEconomy) DecrementStock(ctx context.Context, exec sqlx.ExtContext, id string) error {
	item, ok := m.items[id]
	if !ok || item.Stock <= 0 {
		return appErrors.ErrOutOfStock
	}
	item.Stock--
	return nil
}

func (m *mockEconomy) InsertRedemption(ctx context.Context, exec sqlx.ExtContext, redemption *models.Redemption) error {
	redemption.ID = "rd-1"
	cp := *redemption
	m.redemptions = append(m.redemptions, &cp)
	m.balances[redemption.StudentID] -= redemption.CostAtTx
	return nil
}

func (m *mockEconomy) ListRedemptions(ctx context.Context, filter models.RedemptionFilter) ([]models.Redemption, int, error) {
	out := make([]models.Redemption, 0, len(m.redemptions))
	for _, r := range m.redemptions {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *mockEconomy) Balance(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error) {
	return m.balances[studentID], nil
}

func newRedemptionFixture(t *testing.T, economy *mockEconomy) (*RedemptionService, *mockAuditSink, func(expectCommit bool)) {
	t.Helper()
	db, mock, cleanup := newTxMock(t)
	t.Cleanup(cleanup)
	audit := &mockAuditSink{}
	svc := NewRedemptionService(db, economy, economy, audit, nil, nil, nil, nil)
	expect := func(expectCommit bool) {
		mock.ExpectBegin()
		if expectCommit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}
	return svc, audit, expect
}

func TestRedemptionServiceRedeem(t *testing.T) {
	economy := &mockEconomy{
		items:    map[string]*models.StoreItem{"item-1": {ID: "item-1", Name: "Sticker Pack", Cost: 10, Stock: 3, Active: true}},
		balances: map[string]int{"student-1": 25},
	}
	svc, audit, expect := newRedemptionFixture(t, economy)
	expect(true)

	redemption, err := svc.Redeem(context.Background(), RedeemRequest{
		StudentID: "student-1",
		ItemID:    "item-1",
		ActorID:   "student-user-1",
	})
	require.NoError(t, err)
	require.NotNil(t, redemption)
	assert.Equal(t, 10, redemption.CostAtTx)
	assert.Equal(t, 2, economy.items["item-1"].Stock)
	assert.Equal(t, []string{"student-1"}, economy.locksAcquired)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionRedeemItem, audit.entries[0].Action)
}

func TestRedemptionServiceCostSnapshot(t *testing.T) {
	economy := &mockEconomy{
		items:    map[string]*models.StoreItem{"item-1": {ID: "item-1", Name: "Sticker Pack", Cost: 10, Stock: 3, Active: true}},
		balances: map[string]int{"student-1": 25},
	}
	svc, _, expect := newRedemptionFixture(t, economy)
	expect(true)

	redemption, err := svc.Redeem(context.Background(), RedeemRequest{StudentID: "student-1", ItemID: "item-1", ActorID: "u1"})
	require.NoError(t, err)

	// Later price changes never rewrite the recorded cost.
	economy.items["item-1"].Cost = 99
	assert.Equal(t, 10, redemption.CostAtTx)
	assert.Equal(t, 10, economy.redemptions[0].CostAtTx)
}

func TestRedemptionServiceOutOfStock(t *testing.T) {
	economy := &mockEconomy{
		items:    map[string]*models.StoreItem{"item-1": {ID: "item-1", Name: "Poster", Cost: 5, Stock: 1, Active: true}},
		balances: map[string]int{"student-1": 100},
	}
	svc, _, expect := newRedemptionFixture(t, economy)

	expect(true)
	_, err := svc.Redeem(context.Background(), RedeemRequest{StudentID: "student-1", ItemID: "item-1", ActorID: "u1"})
	require.NoError(t, err)

	// The second attempt observes the decremented stock.
	expect(false)
	_, err = svc.Redeem(context.Background(), RedeemRequest{StudentID: "student-1", ItemID: "item-1", ActorID: "u1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrOutOfStock))
	assert.Len(t, economy.redemptions, 1)
}

func TestRedemptionServiceInsufficientPoints(t *testing.T) {
	economy := &mockEconomy{
		items:    map[string]*models.StoreItem{"item-1": {ID: "item-1", Name: "Poster", Cost: 10, Stock: 5, Active: true}},
		balances: map[string]int{"student-1": 5},
	}
	svc, audit, expect := newRedemptionFixture(t, economy)
	expect(false)

	_, err := svc.Redeem(context.Background(), RedeemRequest{StudentID: "student-1", ItemID: "item-1", ActorID: "u1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInsufficientPoints))
	assert.Contains(t, err.Error(), "balance 5")
	assert.Equal(t, 5, economy.items["item-1"].Stock)
	assert.Empty(t, audit.entries)
}

func TestRedemptionServiceCrossItemDoubleSpend(t *testing.T) {
	// Balance 10 covers either item alone but not both. With redemption
	// attempts serialized per student, the second sees the spent balance.
	economy := &mockEconomy{
		items: map[string]*models.StoreItem{
			"item-a": {ID: "item-a", Name: "Badge", Cost: 10, Stock: 5, Active: true},
			"item-b": {ID: "item-b", Name: "Pin", Cost: 5, Stock: 5, Active: true},
		},
		balances: map[string]int{"student-1": 10},
	}
	svc, _, expect := newRedemptionFixture(t, economy)

	expect(true)
	_, err := svc.Redeem(context.Background(), RedeemRequest{StudentID: "student-1", ItemID: "item-a", ActorID: "u1"})
	require.NoError(t, err)

	expect(false)
	_, err = svc.Redeem(context.Background(), RedeemRequest{StudentID: "student-1", ItemID: "item-b", ActorID: "u1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInsufficientPoints))
	assert.Len(t, economy.redemptions, 1)
	assert.Equal(t, 5, economy.items["item-b"].Stock)
}

func TestRedemptionServiceItemNotFound(t *testing.T) {
	economy := &mockEconomy{
		items:    map[string]*models.StoreItem{},
		balances: map[string]int{"student-1": 100},
	}
	svc, _, expect := newRedemptionFixture(t, economy)
	expect(false)

	_, err := svc.Redeem(context.Background(), RedeemRequest{StudentID: "student-1", ItemID: "nope", ActorID: "u1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrItemNotFound))
}
