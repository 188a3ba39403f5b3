// Package services содержит чтение настроек платформы с кэшированием в Redis.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

// CacheKey — ключ записи настроек в кэше.
const CacheKey = "settings:admin"

// SettingsRepository читает запись настроек.
type SettingsRepository interface {
	Settings(ctx context.Context) (models.AdminSettings, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// SettingsService отдаёт текущие настройки. Кэш необязателен:
// его ошибки логируются, и чтение идёт напрямую из хранилища.
type SettingsService struct {
	repo     SettingsRepository
	cache    Cache
	ttl      time.Duration
	defaults models.AdminSettings
	log      *slog.Logger
}

// NewSettingsService создаёт SettingsService. cache может быть nil.
// freeStoryLimit используется, пока запись настроек не создана.
func NewSettingsService(repo SettingsRepository, cache Cache, ttl time.Duration, freeStoryLimit int, log *slog.Logger) *SettingsService {
	return &SettingsService{
		repo:     repo,
		cache:    cache,
		ttl:      ttl,
		defaults: models.DefaultAdminSettings(freeStoryLimit),
		log:      log,
	}
}

// Get возвращает настройки из кэша или хранилища.
func (s *SettingsService) Get(ctx context.Context) (models.AdminSettings, error) {
	const op = "services.settings.Get"
	log := s.log.With(slog.String("op", op))

	if s.cache != nil {
		var cached models.AdminSettings
		found, err := s.cache.Get(ctx, CacheKey, &cached)
		if err != nil {
			log.Warn("settings cache read failed", sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	settings, err := s.repo.Settings(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return models.AdminSettings{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, CacheKey, settings, s.ttl); err != nil {
			log.Warn("settings cache write failed", sl.Err(err))
		}
	}
	return settings, nil
}

// Invalidate сбрасывает кэш после изменения настроек.
func (s *SettingsService) Invalidate(ctx context.Context) {
	const op = "services.settings.Invalidate"
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, CacheKey); err != nil {
		s.log.Warn("settings cache invalidate failed", slog.String("op", op), sl.Err(err))
	}
}
