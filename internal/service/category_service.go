package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

type categoryRepository interface {
	List(ctx context.Context, filter models.PointCategoryFilter) ([]models.PointCategory, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.PointCategory, error)
	Create(ctx context.Context, category *models.PointCategory) error
	Update(ctx context.Context, category *models.PointCategory) error
}

// CreateCategoryRequest holds payload for creating point categories.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	MinValue    int    `json:"min_value"`
	MaxValue    int    `json:"max_value"`
}

// UpdateCategoryRequest holds payload for updating point categories.
type UpdateCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	MinValue    int    `json:"min_value"`
	MaxValue    int    `json:"max_value"`
	Active      bool   `json:"active"`
}

// CategoryService manages point categories and their bounds.
type CategoryService struct {
	repo      categoryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs the category service.
func NewCategoryService(repo categoryRepository, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, validator: validate, logger: logger}
}

// List returns categories and pagination metadata.
func (s *CategoryService) List(ctx context.Context, filter models.PointCategoryFilter) ([]models.PointCategory, *models.Pagination, error) {
	categories, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return categories, pagination, nil
}

// Get returns a single category.
func (s *CategoryService) Get(ctx context.Context, id string) (*models.PointCategory, error) {
	category, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCategoryNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return category, nil
}

// Create adds a new category. Bounds must satisfy min <= max.
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*models.PointCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	if req.MinValue > req.MaxValue {
		return nil, appErrors.Clone(appErrors.ErrValidation, "min_value must not exceed max_value")
	}
	category := &models.PointCategory{
		Name:        req.Name,
		Description: req.Description,
		MinValue:    req.MinValue,
		MaxValue:    req.MaxValue,
		Active:      true,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return category, nil
}

// Update modifies an existing category. Bound changes apply to future awards
// only; recorded events keep the bounds in force at their insertion time.
func (s *CategoryService) Update(ctx context.Context, id string, req UpdateCategoryRequest) (*models.PointCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	if req.MinValue > req.MaxValue {
		return nil, appErrors.Clone(appErrors.ErrValidation, "min_value must not exceed max_value")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Name = req.Name
	existing.Description = req.Description
	existing.MinValue = req.MinValue
	existing.MaxValue = req.MaxValue
	existing.Active = req.Active
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}
	return existing, nil
}
