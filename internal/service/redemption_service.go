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

type redemptionStoreRepository interface {
	AcquireStudentLock(ctx context.Context, exec sqlx.ExtContext, studentID string) error
	LockItem(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StoreItem, error)
	DecrementStock(ctx context.Context, exec sqlx.ExtContext, id string) error
	InsertRedemption(ctx context.Context, exec sqlx.ExtContext, redemption *models.Redemption) error
	ListRedemptions(ctx context.Context, filter models.RedemptionFilter) ([]models.Redemption, int, error)
}

type redemptionLedgerRepository interface {
	Balance(ctx context.Context, exec sqlx.ExtContext, studentID string) (int, error)
}

// RedeemRequest describes the payload for redeeming a store item.
type RedeemRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ItemID    string `json:"item_id" validate:"required"`
	ActorID   string `json:"-"`
}

// RedemptionService is the concurrency-critical redemption engine. Stock
// consistency relies on the item row lock; balance consistency across a
// student's concurrent redemptions of different items relies on the
// per-student advisory lock. Both are transaction scoped.
type RedemptionService struct {
	tx        awardTxProvider
	store     redemptionStoreRepository
	ledger    redemptionLedgerRepository
	audit     awardAuditRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRedemptionService constructs the redemption service.
func NewRedemptionService(
	tx awardTxProvider,
	store redemptionStoreRepository,
	ledger redemptionLedgerRepository,
	audit awardAuditRepository,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *RedemptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedemptionService{
		tx:        tx,
		store:     store,
		ledger:    ledger,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Redeem exchanges points for one unit of the item. The algorithm runs in a
// single transaction: take the per-student lock, lock the item row, check
// stock, check balance against the locked state, then decrement stock and
// append the redemption and its audit entry. Any failed check rolls the
// whole transaction back leaving every entity unchanged.
func (s *RedemptionService) Redeem(ctx context.Context, req RedeemRequest) (redemption *models.Redemption, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid redeem payload")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin redemption transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.store.AcquireStudentLock(ctx, tx, req.StudentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize student redemptions")
	}

	item, err := s.store.LockItem(ctx, tx, req.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrItemNotFound, "")
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock store item")
	}
	if item.Stock <= 0 {
		err = appErrors.Clone(appErrors.ErrOutOfStock, fmt.Sprintf("item %s is out of stock", item.Name))
		return nil, err
	}

	balance, err := s.ledger.Balance(ctx, tx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute balance")
	}
	if balance < item.Cost {
		err = appErrors.Clone(appErrors.ErrInsufficientPoints,
			fmt.Sprintf("balance %d is less than item cost %d", balance, item.Cost))
		return nil, err
	}

	if err = s.store.DecrementStock(ctx, tx, item.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decrement stock")
	}

	redemption = &models.Redemption{
		StudentID: req.StudentID,
		ItemID:    item.ID,
		CostAtTx:  item.Cost,
		CreatedBy: req.ActorID,
	}
	if err = s.store.InsertRedemption(ctx, tx, redemption); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record redemption")
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"redemption_id": redemption.ID,
		"item_id":       item.ID,
		"item":          item.Name,
		"cost_at_tx":    item.Cost,
	})
	if err = s.audit.Create(ctx, tx, &models.AuditLog{
		ActorID:  &req.ActorID,
		Action:   models.AuditActionRedeemItem,
		Resource: "student",
		TargetID: &req.StudentID,
		Meta:     meta,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit redemption")
	}

	if s.metrics != nil {
		s.metrics.RecordRedemption(item.Cost)
	}
	if s.cache.Enabled() {
		if cacheErr := s.cache.Invalidate(ctx, activityCachePrefix+"*"); cacheErr != nil {
			s.logger.Warn("failed to invalidate activity cache", zap.Error(cacheErr))
		}
	}

	s.logger.Info("item redeemed",
		zap.String("student_id", req.StudentID),
		zap.String("item_id", item.ID),
		zap.Int("cost_at_tx", item.Cost),
		zap.String("redemption_id", redemption.ID),
	)
	return redemption, nil
}

// History returns paginated redemption history.
func (s *RedemptionService) History(ctx context.Context, filter models.RedemptionFilter) ([]models.Redemption, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	redemptions, total, err := s.store.ListRedemptions(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list redemptions")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return redemptions, pagination, nil
}
