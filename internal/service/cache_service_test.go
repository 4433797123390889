package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unicesmag/labcontrol/internal/repository"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection refused")
}

func TestCacheServiceRoundTrip(t *testing.T) {
	svc := NewCacheService(repository.NewMemoryCacheRepository(time.Minute), nil, 0, zap.NewNop(), true)
	ctx := context.Background()

	var got []string
	hit, err := svc.Get(ctx, "labcontrol:records:all:storage", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "labcontrol:records:all:storage", []string{"a"}, 0))
	hit, err = svc.Get(ctx, "labcontrol:records:all:storage", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, got)

	require.NoError(t, svc.Invalidate(ctx, recordCachePattern))
	hit, _ = svc.Get(ctx, "labcontrol:records:all:storage", &got)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(failingCacheRepo{}, nil, time.Minute, nil, false)

	var got []string
	hit, err := svc.Get(context.Background(), "k", &got)
	assert.False(t, hit)
	assert.NoError(t, err)
	assert.NoError(t, svc.Set(context.Background(), "k", got, 0))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceBackendFailureIsAMiss(t *testing.T) {
	svc := NewCacheService(failingCacheRepo{}, nil, time.Minute, nil, true)

	var got []string
	hit, err := svc.Get(context.Background(), "k", &got)
	assert.False(t, hit)
	assert.Error(t, err)
}
