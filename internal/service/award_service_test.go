package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

// newTxMock yields a sqlx.DB whose Begin/Commit/Rollback are scripted while
// the repositories are replaced with in-memory mocks.
func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
	}
	return sqlxDB, mock, cleanup
}

type mockAwardStudents struct {
	existing map[string]bool
	err      error
}

func (m *mockAwardStudents) Exists(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.existing[id], nil
}

type mockAwardCategories struct {
	categories map[string]*models.PointCategory
}

func (m *mockAwardCategories) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.PointCategory, error) {
	if category, ok := m.categories[id]; ok {
		cp := *category
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockAwardLedger struct {
	inserted  []*models.PointEvent
	insertErr error
	balance   int
	events    []models.PointEvent
	total     int
}

func (m *mockAwardLedger) InsertEvent(ctx context.Context, exec sqlx.ExtContext, event *models.PointEvent) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	event.ID = "evt-1"
	cp := *event
	m.inserted = append(m.inserted, &cp)
	return nil
}

func (m *mockAwardLedger) Balance(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error) {
	return m.balance, nil
}

func (m *mockAwardLedger) ListEvents(ctx context.Context, filter models.PointEventFilter) ([]models.PointEvent, int, error) {
	return m.events, m.total, nil
}

type mockAuditSink struct {
	entries []*models.AuditLog
	err     error
}

func (m *mockAuditSink) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func newAwardFixture(t *testing.T) (*AwardService, sqlmock.Sqlmock, *mockAwardLedger, *mockAuditSink, func()) {
	t.Helper()
	db, mock, cleanup := newTxMock(t)
	students := &mockAwardStudents{existing: map[string]bool{"student-1": true}}
	categories := &mockAwardCategories{categories: map[string]*models.PointCategory{
		"cat-1": {ID: "cat-1", Name: "Behaviour", MinValue: -10, MaxValue: 20, Active: true},
		"cat-2": {ID: "cat-2", Name: "Retired", MinValue: 0, MaxValue: 5, Active: false},
	}}
	ledger := &mockAwardLedger{}
	audit := &mockAuditSink{}
	svc := NewAwardService(db, students, categories, ledger, audit, nil, nil, nil, nil)
	return svc, mock, ledger, audit, cleanup
}

func TestAwardServiceAward(t *testing.T) {
	svc, mock, ledger, audit, cleanup := newAwardFixture(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectCommit()

	event, err := svc.Award(context.Background(), AwardRequest{
		StudentID:  "student-1",
		CategoryID: "cat-1",
		Amount:     15,
		Note:       "helped clean up",
		ActorID:    "staff-1",
	})
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, 15, event.Delta)
	assert.Equal(t, "staff-1", event.CreatedBy)

	require.Len(t, ledger.inserted, 1)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionAwardPoints, audit.entries[0].Action)
	require.NotNil(t, audit.entries[0].TargetID)
	assert.Equal(t, "student-1", *audit.entries[0].TargetID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardServiceBounds(t *testing.T) {
	cases := []struct {
		name    string
		amount  int
		wantErr bool
	}{
		{"at max", 20, false},
		{"at min", -10, false},
		{"above max", 25, true},
		{"below min", -11, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock, ledger, _, cleanup := newAwardFixture(t)
			defer cleanup()

			mock.ExpectBegin()
			if tc.wantErr {
				mock.ExpectRollback()
			} else {
				mock.ExpectCommit()
			}

			_, err := svc.Award(context.Background(), AwardRequest{
				StudentID:  "student-1",
				CategoryID: "cat-1",
				Amount:     tc.amount,
				ActorID:    "staff-1",
			})
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, appErrors.Is(err, appErrors.ErrAmountOutOfRange))
				assert.Empty(t, ledger.inserted)
			} else {
				require.NoError(t, err)
				require.Len(t, ledger.inserted, 1)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAwardServiceStudentNotFound(t *testing.T) {
	svc, mock, ledger, audit, cleanup := newAwardFixture(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Award(context.Background(), AwardRequest{
		StudentID:  "missing",
		CategoryID: "cat-1",
		Amount:     5,
		ActorID:    "staff-1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStudentNotFound))
	assert.Empty(t, ledger.inserted)
	assert.Empty(t, audit.entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardServiceCategoryNotFound(t *testing.T) {
	svc, mock, _, _, cleanup := newAwardFixture(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Award(context.Background(), AwardRequest{
		StudentID:  "student-1",
		CategoryID: "missing",
		Amount:     5,
		ActorID:    "staff-1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCategoryNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardServiceInactiveCategory(t *testing.T) {
	svc, mock, ledger, _, cleanup := newAwardFixture(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Award(context.Background(), AwardRequest{
		StudentID:  "student-1",
		CategoryID: "cat-2",
		Amount:     3,
		ActorID:    "staff-1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCategoryNotFound))
	assert.Empty(t, ledger.inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardServiceAuditFailureRollsBack(t *testing.T) {
	svc, mock, _, audit, cleanup := newAwardFixture(t)
	defer cleanup()
	audit.err = sql.ErrConnDone

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Award(context.Background(), AwardRequest{
		StudentID:  "student-1",
		CategoryID: "cat-1",
		Amount:     5,
		ActorID:    "staff-1",
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAwardServiceValidation(t *testing.T) {
	svc, _, _, _, cleanup := newAwardFixture(t)
	defer cleanup()

	_, err := svc.Award(context.Background(), AwardRequest{CategoryID: "cat-1", Amount: 5})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAwardServiceHistoryDefaults(t *testing.T) {
	svc, _, ledger, _, cleanup := newAwardFixture(t)
	defer cleanup()
	ledger.events = []models.PointEvent{{ID: "evt-1"}}
	ledger.total = 1

	events, pagination, err := svc.History(context.Background(), models.PointEventFilter{StudentID: "student-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}
