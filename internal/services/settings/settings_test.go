package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/social-stories/internal/cache"
	"github.com/magabrotheeeer/social-stories/internal/config"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
	"github.com/magabrotheeeer/social-stories/internal/storage/memory"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Settings(ctx context.Context) (models.AdminSettings, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.AdminSettings), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedisCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client, err := cache.NewClient(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client), mr
}

func TestGet_DefaultsWhenNotSeeded(t *testing.T) {
	svc := NewSettingsService(memory.New(), nil, time.Minute, 5, newNoopLogger())

	got, err := svc.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, got.FreeStoryLimit)
	assert.True(t, got.EnableRegistration)
	assert.False(t, got.MaintenanceMode)
	assert.Equal(t, models.DefaultPremiumPriceCents, got.PremiumPriceCents)
}

func TestGet_ReadsThroughRedis(t *testing.T) {
	repo := new(MockRepository)
	c, mr := newRedisCache(t)
	svc := NewSettingsService(repo, c, time.Minute, 3, newNoopLogger())

	stored := models.AdminSettings{FreeStoryLimit: 7, EnableRegistration: true, PremiumPriceCents: 500}
	repo.On("Settings", mock.Anything).Return(stored, nil).Once()

	first, err := svc.Get(context.Background())
	require.NoError(t, err)
	second, err := svc.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, stored, first)
	assert.Equal(t, stored, second)
	assert.True(t, mr.Exists(CacheKey))
	repo.AssertExpectations(t)
}

func TestInvalidate_ForcesReload(t *testing.T) {
	repo := new(MockRepository)
	c, mr := newRedisCache(t)
	svc := NewSettingsService(repo, c, time.Minute, 3, newNoopLogger())

	repo.On("Settings", mock.Anything).Return(models.AdminSettings{FreeStoryLimit: 1}, nil).Once()
	_, err := svc.Get(context.Background())
	require.NoError(t, err)

	svc.Invalidate(context.Background())
	assert.False(t, mr.Exists(CacheKey))

	repo.On("Settings", mock.Anything).Return(models.AdminSettings{FreeStoryLimit: 10}, nil).Once()
	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, got.FreeStoryLimit)
	repo.AssertExpectations(t)
}

func TestGet_CacheFailureFallsBackToRepository(t *testing.T) {
	repo := new(MockRepository)
	c := new(MockCache)
	svc := NewSettingsService(repo, c, time.Minute, 3, newNoopLogger())

	stored := models.AdminSettings{FreeStoryLimit: 4}
	c.On("Get", mock.Anything, CacheKey, mock.Anything).Return(false, errors.New("redis down")).Once()
	c.On("Set", mock.Anything, CacheKey, stored, time.Minute).Return(errors.New("redis down")).Once()
	repo.On("Settings", mock.Anything).Return(stored, nil).Once()

	got, err := svc.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, stored, got)
	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestGet_RepositoryError(t *testing.T) {
	repo := new(MockRepository)
	svc := NewSettingsService(repo, nil, time.Minute, 3, newNoopLogger())

	repo.On("Settings", mock.Anything).Return(models.AdminSettings{}, errors.New("db down")).Once()

	_, err := svc.Get(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.False(t, errors.Is(err, storage.ErrNotFound))
}
