package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/el-siradj/SCHOOL/pkg/errors"
)

func TestCacheRepositoryNilClientIsMiss(t *testing.T) {
	repo := NewCacheRepository(nil, CacheBreakerSettings{}, nil)

	var dest map[string]string
	err := repo.Get(context.Background(), "timetable:days", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(context.Background(), "timetable:days", []string{"mon"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "timetable:*"))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryBreakerOpensOnFailures(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	repo := NewCacheRepository(client, CacheBreakerSettings{FailureThreshold: 2, Timeout: time.Minute}, nil)
	defer repo.Close()

	var dest []string
	for i := 0; i < 2; i++ {
		err := repo.Get(context.Background(), "timetable:days", &dest)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrCacheUnavailable))
	}

	assert.Equal(t, "open", repo.State())
	err := repo.Get(context.Background(), "timetable:days", &dest)
	assert.True(t, errors.Is(err, ErrCacheUnavailable))
}
