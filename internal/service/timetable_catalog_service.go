package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/el-siradj/SCHOOL/internal/models"
)

const (
	catalogCachePrefix = "timetable:catalog:"
	catalogDaysKey     = catalogCachePrefix + "days"
	catalogPeriodsKey  = catalogCachePrefix + "periods"
)

type timetableCatalogRepository interface {
	GetClass(ctx context.Context, id int64) (*models.Class, error)
	GetSubject(ctx context.Context, id int64) (*models.Subject, error)
	GetTeacher(ctx context.Context, id int64) (*models.Teacher, error)
	ListActiveDays(ctx context.Context) ([]models.Day, error)
	ListActivePeriods(ctx context.Context) ([]models.Period, error)
	ListStudyWindow(ctx context.Context, cycle string) ([]models.WindowSlot, error)
	GetWindowMembership(ctx context.Context, cycle string, dayID, periodID int64) (*models.WindowMembership, error)
	ListLevels(ctx context.Context) ([]string, error)
	ListSubjectsByIDs(ctx context.Context, ids []int64) ([]models.Subject, error)
	ListClassesByIDs(ctx context.Context, ids []int64) ([]models.Class, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// TimetableCatalogService serves the reference catalog, caching the slow-changing weekly template
// (days, periods, study window per cycle). Entity lookups always go to the database.
type TimetableCatalogService struct {
	timetableCatalogRepository
	cache  catalogCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewTimetableCatalogService wraps the repository with an optional cache.
func NewTimetableCatalogService(repo timetableCatalogRepository, cache catalogCache, ttl time.Duration, logger *zap.Logger) *TimetableCatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableCatalogService{timetableCatalogRepository: repo, cache: cache, ttl: ttl, logger: logger}
}

// ListActiveDays returns active days, from cache when possible.
func (s *TimetableCatalogService) ListActiveDays(ctx context.Context) ([]models.Day, error) {
	return cachedList(ctx, s, catalogDaysKey, s.timetableCatalogRepository.ListActiveDays)
}

// ListActivePeriods returns active periods, from cache when possible.
func (s *TimetableCatalogService) ListActivePeriods(ctx context.Context) ([]models.Period, error) {
	return cachedList(ctx, s, catalogPeriodsKey, s.timetableCatalogRepository.ListActivePeriods)
}

// ListStudyWindow returns a cycle's teachable cells, from cache when possible.
func (s *TimetableCatalogService) ListStudyWindow(ctx context.Context, cycle string) ([]models.WindowSlot, error) {
	normalized := models.NormalizeCycle(cycle)
	return cachedList(ctx, s, catalogCachePrefix+"window:"+normalized, func(ctx context.Context) ([]models.WindowSlot, error) {
		return s.timetableCatalogRepository.ListStudyWindow(ctx, normalized)
	})
}

// Invalidate drops every cached catalog entry.
func (s *TimetableCatalogService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, catalogCachePrefix+"*"); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

// cachedList reads through the cache. Cache failures are logged and fall back to the loader.
func cachedList[T any](ctx context.Context, s *TimetableCatalogService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if s.cache != nil {
		var cached []T
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("catalog cache read skipped", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return cached, nil
		}
	}

	items, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, items, s.ttl); err != nil {
			s.logger.Warn("catalog cache write skipped", zap.String("key", key), zap.Error(err))
		}
	}
	return items, nil
}
