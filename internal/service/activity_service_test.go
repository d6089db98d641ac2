package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

type mockActivityRepo struct {
	days          []models.CalendarDay
	entries       []models.ActivityEntry
	calendarCalls int
	recentCalls   int
	lastLimit     int
}

func (m *mockActivityRepo) PointsCalendar(ctx context.Context, studentID string, start, end time.Time) ([]models.CalendarDay, error) {
	m.calendarCalls++
	return m.days, nil
}

func (m *mockActivityRepo) Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	m.recentCalls++
	m.lastLimit = limit
	return m.entries, nil
}

// memoryCache is an in-memory stand-in for the redis-backed cache repository.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string][]byte{}
	return nil
}

func TestActivityServiceCalendarRangeValidation(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := NewActivityService(repo, nil, 50, nil)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err := svc.Calendar(context.Background(), "student-1", start, end)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, repo.calendarCalls)
}

func TestActivityServiceCalendarPassthrough(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockActivityRepo{days: []models.CalendarDay{
		{Day: day, TotalDelta: 5},
		{Day: day.AddDate(0, 0, 1), TotalDelta: 0},
		{Day: day.AddDate(0, 0, 2), TotalDelta: -3},
	}}
	svc := NewActivityService(repo, nil, 50, nil)

	days, err := svc.Calendar(context.Background(), "student-1", day, day.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, 0, days[1].TotalDelta)
}

func TestActivityServiceCalendarCached(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockActivityRepo{days: []models.CalendarDay{{Day: day, TotalDelta: 5}}}
	cacheSvc := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewActivityService(repo, cacheSvc, 50, nil)

	for i := 0; i < 3; i++ {
		days, err := svc.Calendar(context.Background(), "student-1", day, day)
		require.NoError(t, err)
		require.Len(t, days, 1)
	}
	assert.Equal(t, 1, repo.calendarCalls)
}

func TestActivityServiceRecentDefaultLimit(t *testing.T) {
	repo := &mockActivityRepo{entries: []models.ActivityEntry{{Type: models.ActivityPointEvent}}}
	svc := NewActivityService(repo, nil, 25, nil)

	entries, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 25, repo.lastLimit)
}

func TestActivityServiceRecentCacheInvalidation(t *testing.T) {
	repo := &mockActivityRepo{entries: []models.ActivityEntry{{Type: models.ActivityPointEvent}}}
	cache := newMemoryCache()
	cacheSvc := NewCacheService(cache, nil, time.Minute, nil, true)
	svc := NewActivityService(repo, cacheSvc, 50, nil)

	_, err := svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	_, err = svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.recentCalls)

	// Invalidation after a write forces the next read through to the repo.
	require.NoError(t, cacheSvc.Invalidate(context.Background(), activityCachePrefix+"*"))
	_, err = svc.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.recentCalls)
}
