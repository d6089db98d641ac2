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

type itemRepository interface {
	List(ctx context.Context, filter models.StoreItemFilter) ([]models.StoreItem, int, error)
	FindByID(ctx context.Context, id string) (*models.StoreItem, error)
	Create(ctx context.Context, item *models.StoreItem) error
	Update(ctx context.Context, item *models.StoreItem) error
}

// CreateItemRequest holds payload for creating store items.
type CreateItemRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Cost        int    `json:"cost" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

// UpdateItemRequest holds payload for updating store items. Cost changes do
// not rewrite past redemptions, which snapshot cost_at_tx.
type UpdateItemRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Cost        int    `json:"cost" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Active      bool   `json:"active"`
}

// ItemService manages the store catalog.
type ItemService struct {
	repo      itemRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewItemService constructs the item service.
func NewItemService(repo itemRepository, validate *validator.Validate, logger *zap.Logger) *ItemService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemService{repo: repo, validator: validate, logger: logger}
}

// List returns store items and pagination metadata.
func (s *ItemService) List(ctx context.Context, filter models.StoreItemFilter) ([]models.StoreItem, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list store items")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return items, pagination, nil
}

// Get returns a single store item.
func (s *ItemService) Get(ctx context.Context, id string) (*models.StoreItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrItemNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load store item")
	}
	return item, nil
}

// Create adds a new store item.
func (s *ItemService) Create(ctx context.Context, req CreateItemRequest) (*models.StoreItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item payload")
	}
	item := &models.StoreItem{
		Name:        req.Name,
		Description: req.Description,
		Cost:        req.Cost,
		Stock:       req.Stock,
		Active:      true,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create store item")
	}
	return item, nil
}

// Update modifies an existing store item.
func (s *ItemService) Update(ctx context.Context, id string, req UpdateItemRequest) (*models.StoreItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Name = req.Name
	existing.Description = req.Description
	existing.Cost = req.Cost
	existing.Stock = req.Stock
	existing.Active = req.Active
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update store item")
	}
	return existing, nil
}
