package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-points-api/internal/models"
)

func newLedgerMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLedgerRepositoryInsertEvent(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectExec("INSERT INTO point_events").
		WithArgs(sqlmock.AnyArg(), "student-1", "cat-1", 5, "helped with cleanup", sqlmock.AnyArg(), "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.PointEvent{StudentID: "student-1", CategoryID: "cat-1", Delta: 5, Note: "helped with cleanup", CreatedBy: "user-1"}
	err := repo.InsertEvent(context.Background(), nil, event)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.EventTime.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryBalance(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectQuery("COALESCE").
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(37))

	balance, err := repo.Balance(context.Background(), nil, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 37, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryListEvents(t *testing.T) {
	db, mock, cleanup := newLedgerMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "category_id", "delta", "note", "event_time", "created_by", "created_at"}).
		AddRow("evt-1", "student-1", "cat-1", 5, "note", time.Now(), "user-1", time.Now())
	mock.ExpectQuery("FROM point_events WHERE 1=1 AND student_id = \\$1 AND event_time >= \\$2 ORDER BY event_time DESC, created_at DESC LIMIT 50 OFFSET 0").
		WithArgs("student-1", from).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM point_events WHERE 1=1 AND student_id = \\$1 AND event_time >= \\$2").
		WithArgs("student-1", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	events, total, err := repo.ListEvents(context.Background(), models.PointEventFilter{StudentID: "student-1", DateFrom: &from})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
