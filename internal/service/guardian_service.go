package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

type guardianRepository interface {
	List(ctx context.Context, search string, page, size int) ([]models.Guardian, int, error)
	FindByID(ctx context.Context, id string) (*models.Guardian, error)
	Create(ctx context.Context, guardian *models.Guardian) error
	Update(ctx context.Context, guardian *models.Guardian) error
	LinkStudent(ctx context.Context, link *models.GuardianStudent) error
	UnlinkStudent(ctx context.Context, guardianID, studentID string) error
	StudentsOf(ctx context.Context, guardianID string) ([]models.Student, error)
	IsLinked(ctx context.Context, guardianID, studentID string) (bool, error)
}

// UpsertGuardianRequest holds the payload for creating or updating guardians.
type UpsertGuardianRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
}

// LinkStudentRequest links a guardian to a student.
type LinkStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Relation  string `json:"relation"`
}

// GuardianService manages guardians and their student links.
type GuardianService struct {
	repo      guardianRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGuardianService constructs the guardian service.
func NewGuardianService(repo guardianRepository, validate *validator.Validate, logger *zap.Logger) *GuardianService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardianService{repo: repo, validator: validate, logger: logger}
}

// List returns guardians with pagination.
func (s *GuardianService) List(ctx context.Context, search string, page, size int) ([]models.Guardian, *models.Pagination, error) {
	guardians, total, err := s.repo.List(ctx, search, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list guardians")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return guardians, pagination, nil
}

// Get returns a single guardian.
func (s *GuardianService) Get(ctx context.Context, id string) (*models.Guardian, error) {
	guardian, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
	}
	return guardian, nil
}

// Create registers a new guardian.
func (s *GuardianService) Create(ctx context.Context, req UpsertGuardianRequest) (*models.Guardian, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid guardian payload")
	}
	guardian := &models.Guardian{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if err := s.repo.Create(ctx, guardian); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create guardian")
	}
	return guardian, nil
}

// Update modifies an existing guardian.
func (s *GuardianService) Update(ctx context.Context, id string, req UpsertGuardianRequest) (*models.Guardian, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid guardian payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.FullName = req.FullName
	existing.Email = req.Email
	existing.Phone = req.Phone
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update guardian")
	}
	return existing, nil
}

// Link attaches a student to the guardian.
func (s *GuardianService) Link(ctx context.Context, guardianID string, req LinkStudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid link payload")
	}
	if _, err := s.Get(ctx, guardianID); err != nil {
		return err
	}
	link := &models.GuardianStudent{
		GuardianID: guardianID,
		StudentID:  req.StudentID,
		Relation:   req.Relation,
	}
	if err := s.repo.LinkStudent(ctx, link); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link student")
	}
	return nil
}

// Unlink removes a guardian-student link.
func (s *GuardianService) Unlink(ctx context.Context, guardianID, studentID string) error {
	if err := s.repo.UnlinkStudent(ctx, guardianID, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlink student")
	}
	return nil
}

// Students lists the students linked to a guardian.
func (s *GuardianService) Students(ctx context.Context, guardianID string) ([]models.Student, error) {
	students, err := s.repo.StudentsOf(ctx, guardianID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list linked students")
	}
	return students, nil
}

// IsLinked reports whether a guardian is linked to a student.
func (s *GuardianService) IsLinked(ctx context.Context, guardianID, studentID string) (bool, error) {
	linked, err := s.repo.IsLinked(ctx, guardianID, studentID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check link")
	}
	return linked, nil
}
