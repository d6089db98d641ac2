package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gema-points-api/internal/models"
)

// ActivityRepository serves the read-only aggregation queries: the points
// calendar and the merged recent-activity feed. No mutation happens here.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// PointsCalendar returns one row per calendar day in the inclusive range,
// zero-filled for days without activity, ordered ascending by day.
func (r *ActivityRepository) PointsCalendar(ctx context.Context, studentID string, start, end time.Time) ([]models.CalendarDay, error) {
	const query = `SELECT d.day::date AS day, COALESCE(SUM(pe.delta), 0) AS total_delta
        FROM generate_series($2::date, $3::date, '1 day') AS d(day)
        LEFT JOIN point_events pe ON pe.student_id = $1 AND date_trunc('day', pe.event_time) = d.day
        GROUP BY d.day
        ORDER BY d.day ASC`
	var days []models.CalendarDay
	if err := r.db.SelectContext(ctx, &days, query, studentID, start, end); err != nil {
		return nil, fmt.Errorf("points calendar: %w", err)
	}
	return days, nil
}

// Recent merges point events, redemptions and incidents into one feed sorted
// by timestamp descending, truncated to limit. The union happens at read
// time; there is no materialized feed table.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT * FROM (
        SELECT 'point_event' AS type, pe.id AS ref_id, pe.student_id, s.full_name AS student_name,
               pe.delta AS points, pe.note AS description, pe.event_time AS at
        FROM point_events pe JOIN students s ON s.id = pe.student_id
        UNION ALL
        SELECT 'redemption' AS type, rd.id AS ref_id, rd.student_id, s.full_name AS student_name,
               -rd.cost_at_tx AS points, si.name AS description, rd.redeemed_at AS at
        FROM redemptions rd
        JOIN students s ON s.id = rd.student_id
        JOIN store_items si ON si.id = rd.item_id
        UNION ALL
        SELECT 'incident' AS type, inc.id AS ref_id, inc.student_id, s.full_name AS student_name,
               NULL AS points, inc.description, inc.occurred_at AS at
        FROM incidents inc JOIN students s ON s.id = inc.student_id
        ) feed
        ORDER BY at DESC
        LIMIT $1`
	var entries []models.ActivityEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return entries, nil
}
