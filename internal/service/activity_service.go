package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

type activityRepository interface {
	PointsCalendar(ctx context.Context, studentID string, start, end time.Time) ([]models.CalendarDay, error)
	Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error)
}

// ActivityService serves the read-only reporting queries with an optional
// read-through cache in front of the repository.
type ActivityService struct {
	repo      activityRepository
	cache     *CacheService
	feedLimit int
	logger    *zap.Logger
}

// NewActivityService constructs the activity service.
func NewActivityService(repo activityRepository, cache *CacheService, feedLimit int, logger *zap.Logger) *ActivityService {
	if feedLimit <= 0 {
		feedLimit = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, cache: cache, feedLimit: feedLimit, logger: logger}
}

// Calendar returns the daily point totals for the inclusive date range.
func (s *ActivityService) Calendar(ctx context.Context, studentID string, start, end time.Time) ([]models.CalendarDay, error) {
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	key := fmt.Sprintf("%scalendar:%s:%s:%s", activityCachePrefix, studentID,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	var cached []models.CalendarDay
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	days, err := s.repo.PointsCalendar(ctx, studentID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build points calendar")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, days, 0); err != nil {
			s.logger.Warn("failed to cache calendar", zap.Error(err))
		}
	}
	return days, nil
}

// Recent returns the merged activity feed, newest first. A non-positive limit
// falls back to the configured default.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = s.feedLimit
	}

	key := fmt.Sprintf("%sfeed:%d", activityCachePrefix, limit)
	var cached []models.ActivityEntry
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	entries, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity feed")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, entries, 0); err != nil {
			s.logger.Warn("failed to cache activity feed", zap.Error(err))
		}
	}
	return entries, nil
}
