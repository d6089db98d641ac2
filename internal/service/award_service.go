package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

type awardTxProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type awardStudentRepository interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error)
}

type awardCategoryRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.PointCategory, error)
}

type awardLedgerRepository interface {
	InsertEvent(ctx context.Context, exec sqlx.ExtContext, event *models.PointEvent) error
	Balance(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error)
	ListEvents(ctx context.Context, filter models.PointEventFilter) ([]models.PointEvent, int, error)
}

type awardAuditRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLog) error
}

// AwardRequest describes the payload for recording a point event.
type AwardRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	CategoryID string `json:"category_id" validate:"required"`
	Amount     int    `json:"amount"`
	Note       string `json:"note"`
	ActorID    string `json:"-"`
}

// AwardService validates and records point-awarding events. The point event
// and its audit entry commit in one transaction or not at all.
type AwardService struct {
	tx         awardTxProvider
	students   awardStudentRepository
	categories awardCategoryRepository
	ledger     awardLedgerRepository
	audit      awardAuditRepository
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAwardService constructs the award service.
func NewAwardService(
	tx awardTxProvider,
	students awardStudentRepository,
	categories awardCategoryRepository,
	ledger awardLedgerRepository,
	audit awardAuditRepository,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AwardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AwardService{
		tx:         tx,
		students:   students,
		categories: categories,
		ledger:     ledger,
		audit:      audit,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Award records one point event for the student. Preconditions are checked
// inside the transaction: the student must exist, the category must exist and
// be active, and the amount must lie within the category bounds in force at
// insertion time. A failure at any step rolls the whole transaction back.
func (s *AwardService) Award(ctx context.Context, req AwardRequest) (event *models.PointEvent, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid award payload")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin award transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	exists, err := s.students.Exists(ctx, tx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if !exists {
		err = appErrors.Clone(appErrors.ErrStudentNotFound, "")
		return nil, err
	}

	category, err := s.categories.FindByID(ctx, tx, req.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrCategoryNotFound, "")
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	if !category.Active {
		err = appErrors.Clone(appErrors.ErrCategoryNotFound, fmt.Sprintf("category %s is inactive", category.Name))
		return nil, err
	}
	if req.Amount < category.MinValue || req.Amount > category.MaxValue {
		err = appErrors.Clone(appErrors.ErrAmountOutOfRange,
			fmt.Sprintf("amount %d outside category bounds [%d, %d]", req.Amount, category.MinValue, category.MaxValue))
		return nil, err
	}

	event = &models.PointEvent{
		StudentID:  req.StudentID,
		CategoryID: req.CategoryID,
		Delta:      req.Amount,
		Note:       req.Note,
		CreatedBy:  req.ActorID,
	}
	if err = s.ledger.InsertEvent(ctx, tx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record point event")
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"event_id":    event.ID,
		"category_id": category.ID,
		"category":    category.Name,
		"amount":      req.Amount,
		"note":        req.Note,
	})
	if err = s.audit.Create(ctx, tx, &models.AuditLog{
		ActorID:  &req.ActorID,
		Action:   models.AuditActionAwardPoints,
		Resource: "student",
		TargetID: &req.StudentID,
		Meta:     meta,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit award")
	}

	if s.metrics != nil {
		s.metrics.RecordAward(req.Amount)
	}
	if s.cache.Enabled() {
		if cacheErr := s.cache.Invalidate(ctx, activityCachePrefix+"*"); cacheErr != nil {
			s.logger.Warn("failed to invalidate activity cache", zap.Error(cacheErr))
		}
	}

	s.logger.Info("points awarded",
		zap.String("student_id", req.StudentID),
		zap.String("category_id", req.CategoryID),
		zap.Int("amount", req.Amount),
		zap.String("event_id", event.ID),
	)
	return event, nil
}

// Balance returns the student's derived balance. A student with no history
// yields 0; existence validation is the caller's concern.
func (s *AwardService) Balance(ctx context.Context, studentID string) (int, error) {
	balance, err := s.ledger.Balance(ctx, nil, studentID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute balance")
	}
	return balance, nil
}

// History returns paginated ledger history for a student.
func (s *AwardService) History(ctx context.Context, filter models.PointEventFilter) ([]models.PointEvent, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	events, total, err := s.ledger.ListEvents(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list point events")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return events, pagination, nil
}
