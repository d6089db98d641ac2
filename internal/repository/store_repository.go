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

// StoreRepository manages store items and the append-only redemption ledger.
// Redemption rows are never updated or deleted after insertion.
type StoreRepository struct {
	db *sqlx.DB
}

// NewStoreRepository constructs a StoreRepository.
func NewStoreRepository(db *sqlx.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns store items matching the provided filters.
func (r *StoreRepository) List(ctx context.Context, filter models.StoreItemFilter) ([]models.StoreItem, int, error) {
	base := "FROM store_items"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.InStock != nil && *filter.InStock {
		where = append(where, "stock > 0")
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT id, name, description, cost, stock, active, created_at, updated_at
%s WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var items []models.StoreItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list store items: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count store items: %w", err)
	}
	return items, total, nil
}

// FindByID fetches a store item without locking.
func (r *StoreRepository) FindByID(ctx context.Context, id string) (*models.StoreItem, error) {
	const query = `SELECT id, name, description, cost, stock, active, created_at, updated_at FROM store_items WHERE id = $1`
	var item models.StoreItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new store item.
func (r *StoreRepository) Create(ctx context.Context, item *models.StoreItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	const query = `INSERT INTO store_items (id, name, description, cost, stock, active, created_at, updated_at)
        VALUES (:id, :name, :description, :cost, :stock, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create store item: %w", err)
	}
	return nil
}

// Update modifies an existing store item.
func (r *StoreRepository) Update(ctx context.Context, item *models.StoreItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE store_items SET name = :name, description = :description, cost = :cost, stock = :stock, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update store item: %w", err)
	}
	return nil
}

// AcquireStudentLock takes a per-student advisory lock scoped to the current
// transaction. It serializes redemptions by the same student across different
// items so two concurrent balance checks cannot both pass against a balance
// that covers only one of them. Released automatically on commit or rollback.
func (r *StoreRepository) AcquireStudentLock(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	const query = `SELECT pg_advisory_xact_lock(hashtext('student_redeem:' || $1))`
	if _, err := r.exec(exec).ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("acquire student lock: %w", err)
	}
	return nil
}

// LockItem loads the item under an exclusive row lock. Concurrent redemption
// attempts for the same item block here until the holding transaction ends.
func (r *StoreRepository) LockItem(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StoreItem, error) {
	const query = `SELECT id, name, description, cost, stock, active, created_at, updated_at FROM store_items WHERE id = $1 FOR UPDATE`
	var item models.StoreItem
	if err := sqlx.GetContext(ctx, r.exec(exec), &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// DecrementStock reduces the item's stock by one. The stock > 0 guard is a
// safety net under the row lock; it never drives stock below zero.
func (r *StoreRepository) DecrementStock(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE store_items SET stock = stock - 1, updated_at = $2 WHERE id = $1 AND stock > 0`
	result, err := r.exec(exec).ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("decrement stock: no stock available for item %s", id)
	}
	return nil
}

// InsertRedemption appends one redemption row inside the caller's transaction.
func (r *StoreRepository) InsertRedemption(ctx context.Context, exec sqlx.ExtContext, redemption *models.Redemption) error {
	if redemption.ID == "" {
		redemption.ID = uuid.NewString()
	}
	if redemption.RedeemedAt.IsZero() {
		redemption.RedeemedAt = time.Now().UTC()
	}
	const query = `INSERT INTO redemptions (id, student_id, item_id, cost_at_tx, redeemed_at, created_by)
        VALUES (:id, :student_id, :item_id, :cost_at_tx, :redeemed_at, :created_by)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, redemption); err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}

// ListRedemptions returns redemption history per provided filter.
func (r *StoreRepository) ListRedemptions(ctx context.Context, filter models.RedemptionFilter) ([]models.Redemption, int, error) {
	base := "FROM redemptions"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ItemID != "" {
		where = append(where, fmt.Sprintf("item_id = $%d", len(args)+1))
		args = append(args, filter.ItemID)
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
	query := fmt.Sprintf(`SELECT id, student_id, item_id, cost_at_tx, redeemed_at, created_by
%s WHERE %s ORDER BY redeemed_at DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var redemptions []models.Redemption
	if err := r.db.SelectContext(ctx, &redemptions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list redemptions: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count redemptions: %w", err)
	}
	return redemptions, total, nil
}
