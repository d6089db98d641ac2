package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gema-points-api/internal/models"
)

// LedgerRepository manages the append-only point event ledger. It exposes no
// update or delete for point events: history is immutable and corrections
// happen via new offsetting events.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs a LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// exec falls back to the pooled handle when no transaction is supplied.
func (r *LedgerRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertEvent appends one point event. The caller supplies the executor so
// the insert joins an in-progress transaction.
func (r *LedgerRepository) InsertEvent(ctx context.Context, exec sqlx.ExtContext, event *models.PointEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.EventTime.IsZero() {
		event.EventTime = now
	}
	event.CreatedAt = now
	const query = `INSERT INTO point_events (id, student_id, category_id, delta, note, event_time, created_by, created_at)
        VALUES (:id, :student_id, :category_id, :delta, :note, :event_time, :created_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, event); err != nil {
		return fmt.Errorf("insert point event: %w", err)
	}
	return nil
}

// Balance derives the student's current balance: the sum of all point deltas
// minus the sum of all redemption costs. Executed against the caller's
// executor so a transaction sees its own uncommitted writes and held locks.
// A student with no history yields 0.
func (r *LedgerRepository) Balance(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error) {
	const query = `SELECT
        COALESCE((SELECT SUM(delta) FROM point_events WHERE student_id = $1), 0) -
        COALESCE((SELECT SUM(cost_at_tx) FROM redemptions WHERE student_id = $1), 0) AS balance`
	var balance int
	if err := sqlx.GetContext(ctx, r.exec(exec), &balance, query, studentID); err != nil {
		return 0, fmt.Errorf("compute balance: %w", err)
	}
	return balance, nil
}

// ListEvents returns ledger history per provided filter.
func (r *LedgerRepository) ListEvents(ctx context.Context, filter models.PointEventFilter) ([]models.PointEvent, int, error) {
	base := "FROM point_events"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CategoryID != "" {
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("event_time >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("event_time <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT id, student_id, category_id, delta, note, event_time, created_by, created_at
%s WHERE %s ORDER BY event_time DESC, created_at DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var events []models.PointEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list point events: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count point events: %w", err)
	}
	return events, total, nil
}
