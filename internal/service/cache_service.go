package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

const defaultCatalogTTL = 10 * time.Minute

// CacheRepository is the JSON store behind the catalog cache.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// CacheService is the read-through cache used for the weekly template. A disabled service
// reports every read as a miss and drops writes. Failures are returned for the caller to log.
type CacheService struct {
	repo    CacheRepository
	metrics cacheMetrics
	ttl     time.Duration
}

// NewCacheService returns a cache over repo; repo is ignored when enabled is false.
func NewCacheService(repo CacheRepository, metrics cacheMetrics, ttl time.Duration, enabled bool) *CacheService {
	if !enabled {
		repo = nil
	}
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl}
}

func (s *CacheService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Get decodes key into dest and reports a hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
}

// Set stores value under key. A non-positive ttl uses the service default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", pattern, err)
	}
	return nil
}
