package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

// ErrCacheUnavailable is returned while the breaker is open and Redis is not being called.
var ErrCacheUnavailable = errors.New("cache unavailable")

// CacheBreakerSettings tunes the circuit breaker guarding Redis.
type CacheBreakerSettings struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

// CacheRepository stores JSON payloads in Redis behind a circuit breaker so a failing
// Redis degrades to cache misses instead of slowing every planner request.
type CacheRepository struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger
}

// NewCacheRepository constructs a cache repository. A nil client makes every lookup a miss.
func NewCacheRepository(client *redis.Client, settings CacheBreakerSettings, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, appErrors.ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &CacheRepository{client: client, breaker: breaker, logger: logger}
}

func (r *CacheRepository) call(fn func() ([]byte, error)) ([]byte, error) {
	raw, err := r.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCacheUnavailable
	}
	return raw, err
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.call(func() ([]byte, error) {
		raw, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, appErrors.ErrCacheMiss
			}
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	_, err = r.call(func() ([]byte, error) {
		if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
			return nil, fmt.Errorf("redis set %s: %w", key, err)
		}
		return nil, nil
	})
	return err
}

// DeleteByPattern removes cached entries matching the provided pattern.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	_, err := r.call(func() ([]byte, error) {
		iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			if err := r.client.Del(ctx, key).Err(); err != nil {
				return nil, fmt.Errorf("redis delete %s: %w", key, err)
			}
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("redis scan pattern %s: %w", pattern, err)
		}
		return nil, nil
	})
	return err
}

// State exposes the breaker state for readiness reporting.
func (r *CacheRepository) State() string {
	return r.breaker.State().String()
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
