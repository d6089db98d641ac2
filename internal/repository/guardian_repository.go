package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gema-points-api/internal/models"
)

// GuardianRepository manages guardians and the guardian-student linkage table.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository constructs a GuardianRepository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// List returns guardians per provided filter.
func (r *GuardianRepository) List(ctx context.Context, search string, page, size int) ([]models.Guardian, int, error) {
	base := "FROM guardians"
	where := []string{"1=1"}
	args := []interface{}{}
	if search != "" {
		where = append(where, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	whereClause := strings.Join(where, " AND ")
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT id, full_name, email, phone, created_at, updated_at
%s WHERE %s ORDER BY full_name ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list guardians: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count guardians: %w", err)
	}
	return guardians, total, nil
}

// FindByID fetches a guardian by ID.
func (r *GuardianRepository) FindByID(ctx context.Context, id string) (*models.Guardian, error) {
	const query = `SELECT id, full_name, email, phone, created_at, updated_at FROM guardians WHERE id = $1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, id); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// Create inserts a new guardian.
func (r *GuardianRepository) Create(ctx context.Context, guardian *models.Guardian) error {
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if guardian.CreatedAt.IsZero() {
		guardian.CreatedAt = now
	}
	guardian.UpdatedAt = now
	const query = `INSERT INTO guardians (id, full_name, email, phone, created_at, updated_at)
        VALUES (:id, :full_name, :email, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, guardian); err != nil {
		return fmt.Errorf("create guardian: %w", err)
	}
	return nil
}

// Update modifies an existing guardian.
func (r *GuardianRepository) Update(ctx context.Context, guardian *models.Guardian) error {
	guardian.UpdatedAt = time.Now().UTC()
	const query = `UPDATE guardians SET full_name = :full_name, email = :email, phone = :phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, guardian); err != nil {
		return fmt.Errorf("update guardian: %w", err)
	}
	return nil
}

// LinkStudent creates a guardian-student link, ignoring duplicates.
func (r *GuardianRepository) LinkStudent(ctx context.Context, link *models.GuardianStudent) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO guardian_students (guardian_id, student_id, relation, created_at)
        VALUES (:guardian_id, :student_id, :relation, :created_at)
        ON CONFLICT (guardian_id, student_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("link guardian student: %w", err)
	}
	return nil
}

// UnlinkStudent removes a guardian-student link.
func (r *GuardianRepository) UnlinkStudent(ctx context.Context, guardianID, studentID string) error {
	const query = `DELETE FROM guardian_students WHERE guardian_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, guardianID, studentID); err != nil {
		return fmt.Errorf("unlink guardian student: %w", err)
	}
	return nil
}

// StudentsOf lists the students linked to a guardian.
func (r *GuardianRepository) StudentsOf(ctx context.Context, guardianID string) ([]models.Student, error) {
	const query = `SELECT s.id, s.full_name, s.grade, s.cohort, s.active, s.created_at, s.updated_at
        FROM students s JOIN guardian_students gs ON gs.student_id = s.id
        WHERE gs.guardian_id = $1 ORDER BY s.full_name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, guardianID); err != nil {
		return nil, fmt.Errorf("guardian students: %w", err)
	}
	return students, nil
}

// IsLinked reports whether the guardian is linked to the student.
func (r *GuardianRepository) IsLinked(ctx context.Context, guardianID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM guardian_students WHERE guardian_id = $1 AND student_id = $2 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, guardianID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check guardian link: %w", err)
	}
	return true, nil
}
