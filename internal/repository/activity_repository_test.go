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

func newActivityMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestActivityRepositoryPointsCalendar(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	rows := sqlmock.NewRows([]string{"day", "total_delta"}).
		AddRow(start, 5).
		AddRow(start.AddDate(0, 0, 1), 0).
		AddRow(end, -3)
	mock.ExpectQuery("generate_series").
		WithArgs("student-1", start, end).
		WillReturnRows(rows)

	days, err := repo.PointsCalendar(context.Background(), "student-1", start, end)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, 5, days[0].TotalDelta)
	assert.Equal(t, 0, days[1].TotalDelta)
	assert.Equal(t, -3, days[2].TotalDelta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryRecent(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	points := 5
	rows := sqlmock.NewRows([]string{"type", "ref_id", "student_id", "student_name", "points", "description", "at"}).
		AddRow("point_event", "evt-1", "student-1", "Mira Oduya", points, "helped with cleanup", time.Now()).
		AddRow("incident", "inc-1", "student-2", "Tomas Reel", nil, "broken window", time.Now().Add(-time.Hour))
	mock.ExpectQuery("UNION ALL").
		WithArgs(10).
		WillReturnRows(rows)

	entries, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActivityPointEvent, entries[0].Type)
	require.NotNil(t, entries[0].Points)
	assert.Equal(t, 5, *entries[0].Points)
	assert.Equal(t, models.ActivityIncident, entries[1].Type)
	assert.Nil(t, entries[1].Points)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryRecentClampsLimit(t *testing.T) {
	db, mock, cleanup := newActivityMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery("UNION ALL").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"type", "ref_id", "student_id", "student_name", "points", "description", "at"}))

	entries, err := repo.Recent(context.Background(), -5)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
