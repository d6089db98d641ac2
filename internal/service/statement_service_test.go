package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

type mockStatementStudents struct {
	student *models.Student
}

func (m *mockStatementStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.student == nil || m.student.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

type mockStatementLedger struct {
	events  []models.PointEvent
	balance int
	pages   int
}

func (m *mockStatementLedger) ListEvents(ctx context.Context, filter models.PointEventFilter) ([]models.PointEvent, int, error) {
	m.pages++
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(m.events) {
		return nil, len(m.events), nil
	}
	end := start + filter.PageSize
	if end > len(m.events) {
		end = len(m.events)
	}
	return m.events[start:end], len(m.events), nil
}

func (m *mockStatementLedger) Balance(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error) {
	return m.balance, nil
}

type mockStatementStore struct {
	redemptions []models.Redemption
}

func (m *mockStatementStore) ListRedemptions(ctx context.Context, filter models.RedemptionFilter) ([]models.Redemption, int, error) {
	return m.redemptions, len(m.redemptions), nil
}

func statementTime(day int) time.Time {
	return time.Date(2026, time.March, day, 10, 0, 0, 0, time.UTC)
}

func newStatementFixture(events []models.PointEvent, redemptions []models.Redemption, balance int) (*StatementService, *mockStatementLedger) {
	ledger := &mockStatementLedger{events: events, balance: balance}
	svc := NewStatementService(
		&mockStatementStudents{student: &models.Student{ID: "student-1", FullName: "Mira Oduya"}},
		ledger,
		&mockStatementStore{redemptions: redemptions},
		zap.NewNop(),
	)
	return svc, ledger
}

func TestStatementServiceRenderCSV(t *testing.T) {
	events := []models.PointEvent{
		{ID: "evt-1", StudentID: "student-1", Delta: 10, Note: "tidy workshop", EventTime: statementTime(3)},
		{ID: "evt-2", StudentID: "student-1", Delta: -4, Note: "late arrival", EventTime: statementTime(1)},
	}
	redemptions := []models.Redemption{
		{ID: "rd-1", StudentID: "student-1", ItemID: "item-1", CostAtTx: 5, RedeemedAt: statementTime(2)},
	}
	svc, _ := newStatementFixture(events, redemptions, 1)

	stmt, err := svc.Render(context.Background(), "student-1", nil, nil, StatementFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", stmt.ContentType)
	assert.True(t, strings.HasPrefix(stmt.FileName, "statement_student-1_"))
	assert.True(t, strings.HasSuffix(stmt.FileName, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(stmt.Content)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Date,Type,Points,Description", lines[0])
	// Rows are ordered by event time regardless of source.
	assert.Contains(t, lines[1], "DEDUCTION")
	assert.Contains(t, lines[1], "-4")
	assert.Contains(t, lines[2], "REDEMPTION")
	assert.Contains(t, lines[2], "-5")
	assert.Contains(t, lines[2], "store item item-1")
	assert.Contains(t, lines[3], "AWARD")
	assert.Contains(t, lines[3], "10")
	assert.Contains(t, lines[4], "BALANCE")
	assert.Contains(t, lines[4], "current balance")
}

func TestStatementServiceRenderPDF(t *testing.T) {
	svc, _ := newStatementFixture(nil, nil, 0)

	stmt, err := svc.Render(context.Background(), "student-1", nil, nil, StatementFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", stmt.ContentType)
	assert.True(t, strings.HasSuffix(stmt.FileName, ".pdf"))
	assert.True(t, len(stmt.Content) > 0)
}

func TestStatementServiceDateRangeFiltersRedemptions(t *testing.T) {
	from := statementTime(2)
	to := statementTime(4)
	redemptions := []models.Redemption{
		{ID: "rd-old", StudentID: "student-1", ItemID: "item-1", CostAtTx: 3, RedeemedAt: statementTime(1)},
		{ID: "rd-in", StudentID: "student-1", ItemID: "item-2", CostAtTx: 6, RedeemedAt: statementTime(3)},
		{ID: "rd-late", StudentID: "student-1", ItemID: "item-3", CostAtTx: 9, RedeemedAt: statementTime(5)},
	}
	svc, _ := newStatementFixture(nil, redemptions, 12)

	stmt, err := svc.Render(context.Background(), "student-1", &from, &to, StatementFormatCSV)
	require.NoError(t, err)

	body := string(stmt.Content)
	assert.Contains(t, body, "item-2")
	assert.NotContains(t, body, "item-1")
	assert.NotContains(t, body, "item-3")
}

func TestStatementServicePaginatesLedger(t *testing.T) {
	events := make([]models.PointEvent, statementPageSize+10)
	for i := range events {
		events[i] = models.PointEvent{
			ID:        fmt.Sprintf("evt-%d", i),
			StudentID: "student-1",
			Delta:     1,
			EventTime: statementTime(1).Add(time.Duration(i) * time.Minute),
		}
	}
	svc, ledger := newStatementFixture(events, nil, len(events))

	stmt, err := svc.Render(context.Background(), "student-1", nil, nil, StatementFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.pages)

	lines := strings.Split(strings.TrimSpace(string(stmt.Content)), "\n")
	// Header, every event, and the trailing balance row.
	assert.Len(t, lines, len(events)+2)
}

func TestStatementServiceStudentNotFound(t *testing.T) {
	svc, _ := newStatementFixture(nil, nil, 0)

	_, err := svc.Render(context.Background(), "missing", nil, nil, StatementFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStudentNotFound))
}

func TestStatementServiceUnsupportedFormat(t *testing.T) {
	svc, _ := newStatementFixture(nil, nil, 0)

	_, err := svc.Render(context.Background(), "student-1", nil, nil, StatementFormat("xml"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
