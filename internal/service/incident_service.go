package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

type incidentRepository interface {
	List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, int, error)
	FindByID(ctx context.Context, id string) (*models.Incident, error)
	Create(ctx context.Context, incident *models.Incident) error
}

// CreateIncidentRequest describes the payload for logging an incident.
type CreateIncidentRequest struct {
	StudentID   string     `json:"student_id" validate:"required"`
	Severity    string     `json:"severity" validate:"required,severity"`
	Description string     `json:"description" validate:"required"`
	OccurredAt  *time.Time `json:"occurred_at"`
	ActorID     string     `json:"-"`
}

// IncidentService handles incident notes. Incidents are immutable once
// logged; the service exposes no update or delete.
type IncidentService struct {
	repo      incidentRepository
	audit     awardAuditRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIncidentService constructs the incident service.
func NewIncidentService(repo incidentRepository, audit awardAuditRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &IncidentService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
	svc.validator.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		switch models.IncidentSeverity(fl.Field().String()) {
		case models.IncidentSeverityLow, models.IncidentSeverityMedium, models.IncidentSeverityHigh:
			return true
		default:
			return false
		}
	})
	return svc
}

// List returns incidents with pagination.
func (s *IncidentService) List(ctx context.Context, filter models.IncidentFilter) ([]models.Incident, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	incidents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incidents")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return incidents, pagination, nil
}

// Get returns a single incident.
func (s *IncidentService) Get(ctx context.Context, id string) (*models.Incident, error) {
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	return incident, nil
}

// Create logs a new incident with its audit entry.
func (s *IncidentService) Create(ctx context.Context, req CreateIncidentRequest) (*models.Incident, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}
	incident := &models.Incident{
		StudentID:   req.StudentID,
		Severity:    models.IncidentSeverity(req.Severity),
		Description: req.Description,
		CreatedBy:   req.ActorID,
	}
	if req.OccurredAt != nil {
		incident.OccurredAt = *req.OccurredAt
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create incident")
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"incident_id": incident.ID,
		"severity":    incident.Severity,
	})
	if err := s.audit.Create(ctx, nil, &models.AuditLog{
		ActorID:  &req.ActorID,
		Action:   models.AuditActionIncidentCreate,
		Resource: "student",
		TargetID: &req.StudentID,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("failed to record incident audit log", zap.Error(err))
	}

	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, activityCachePrefix+"*"); err != nil {
			s.logger.Warn("failed to invalidate activity cache", zap.Error(err))
		}
	}
	return incident, nil
}
