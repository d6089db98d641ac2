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

// CategoryRepository manages persistence for point categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs a CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns point categories per provided filter.
func (r *CategoryRepository) List(ctx context.Context, filter models.PointCategoryFilter) ([]models.PointCategory, int, error) {
	base := "FROM point_categories"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
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
		size = 50
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT id, name, description, min_value, max_value, active, created_at, updated_at
%s WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var categories []models.PointCategory
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}
	return categories, total, nil
}

// FindByID fetches a category. The caller supplies the executor so the bounds
// read joins the award transaction.
func (r *CategoryRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.PointCategory, error) {
	const query = `SELECT id, name, description, min_value, max_value, active, created_at, updated_at FROM point_categories WHERE id = $1`
	var category models.PointCategory
	if err := sqlx.GetContext(ctx, r.exec(exec), &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts a new point category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.PointCategory) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now
	const query = `INSERT INTO point_categories (id, name, description, min_value, max_value, active, created_at, updated_at)
        VALUES (:id, :name, :description, :min_value, :max_value, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update modifies an existing category. Bound changes never retroactively
// invalidate recorded events.
func (r *CategoryRepository) Update(ctx context.Context, category *models.PointCategory) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE point_categories SET name = :name, description = :description, min_value = :min_value, max_value = :max_value, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}
