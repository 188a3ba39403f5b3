// Package services содержит бизнес-логику историй: создание с учётом
// бесплатной квоты, чтение, удаление и генерацию видео для premium.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/social-stories/internal/entitlement"
	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/metrics"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

// Границы пагинации списка историй.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// StoryRepository определяет методы для работы с историями в хранилище.
type StoryRepository interface {
	storage.Transactor
	// UserByID возвращает пользователя без блокировки.
	UserByID(ctx context.Context, id string) (models.User, error)
	// ListStories возвращает истории пользователя от новых к старым.
	ListStories(ctx context.Context, userID string, limit, offset int) ([]models.Story, error)
	// StoryByID возвращает историю по ID.
	StoryByID(ctx context.Context, id string) (models.Story, error)
	// DeleteStory удаляет историю владельца.
	DeleteStory(ctx context.Context, id, userID string) error
	// SetStoryVideo сохраняет ссылку на видео.
	SetStoryVideo(ctx context.Context, id, userID, videoURL string) error
}

// VideoProvider генерирует видео по истории.
type VideoProvider interface {
	GenerateVideo(ctx context.Context, story models.Story) (string, error)
}

// SettingsProvider отдаёт текущие настройки платформы.
type SettingsProvider interface {
	Get(ctx context.Context) (models.AdminSettings, error)
}

// StoryService реализует операции над историями вызывающего.
type StoryService struct {
	repo     StoryRepository
	video    VideoProvider
	settings SettingsProvider
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

// NewStoryService создает новый экземпляр StoryService.
func NewStoryService(repo StoryRepository, video VideoProvider, settings SettingsProvider, log *slog.Logger) *StoryService {
	return &StoryService{
		repo:     repo,
		video:    video,
		settings: settings,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// Create сохраняет историю и списывает одну единицу квоты в одной
// транзакции. Списание условное, поэтому два одновременных запроса на
// границе квоты не могут пройти оба.
func (s *StoryService) Create(ctx context.Context, p *gate.Principal, in models.NewStory) (models.Story, error) {
	const op = "services.story.Create"
	log := s.log.With(slog.String("op", op))

	if err := p.Require(gate.Authenticated); err != nil {
		return models.Story{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return models.Story{}, apperr.FromValidation(err)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return models.Story{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.repo.UserByID(ctx, p.UserID)
	if err != nil {
		return models.Story{}, s.userErr(op, err)
	}
	if !entitlement.CanCreateStory(user, settings.FreeStoryLimit, s.now()) {
		metrics.EntitlementDenials.WithLabelValues("stories.create").Inc()
		return models.Story{}, apperr.ErrQuotaExceeded
	}

	var created models.Story
	err = s.repo.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.ConsumeStoryQuota(ctx, p.UserID, settings.FreeStoryLimit); err != nil {
			return err
		}
		pages := in.Pages
		if pages == nil {
			pages = []models.Page{}
		}
		story, err := tx.InsertStory(ctx, models.Story{
			ID:        uuid.NewString(),
			UserID:    p.UserID,
			Title:     in.Title,
			Category:  in.Category,
			Content:   in.Content,
			Pages:     pages,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			return err
		}
		created = story
		return nil
	})
	if errors.Is(err, storage.ErrQuotaExhausted) {
		metrics.EntitlementDenials.WithLabelValues("stories.create").Inc()
		return models.Story{}, apperr.ErrQuotaExceeded
	}
	if err != nil {
		return models.Story{}, s.userErr(op, err)
	}

	log.Info("story created", slog.String("story_id", created.ID), slog.String("user_id", p.UserID))
	return created, nil
}

// List возвращает истории вызывающего с пагинацией.
func (s *StoryService) List(ctx context.Context, p *gate.Principal, limit, offset int) ([]models.Story, error) {
	const op = "services.story.List"
	if err := p.Require(gate.Authenticated); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)

	stories, err := s.repo.ListStories(ctx, p.UserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stories == nil {
		stories = []models.Story{}
	}
	return stories, nil
}

// Get возвращает историю вызывающего. Чужая история считается ненайденной.
func (s *StoryService) Get(ctx context.Context, p *gate.Principal, id string) (models.Story, error) {
	const op = "services.story.Get"
	if err := p.Require(gate.Authenticated); err != nil {
		return models.Story{}, err
	}
	story, err := s.repo.StoryByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && story.UserID != p.UserID) {
		return models.Story{}, apperr.NotFound("story")
	}
	if err != nil {
		return models.Story{}, fmt.Errorf("%s: %w", op, err)
	}
	return story, nil
}

// Delete удаляет историю вызывающего. Счётчик историй не уменьшается.
func (s *StoryService) Delete(ctx context.Context, p *gate.Principal, id string) error {
	const op = "services.story.Delete"
	if err := p.Require(gate.Authenticated); err != nil {
		return err
	}
	err := s.repo.DeleteStory(ctx, id, p.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("story")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GenerateVideo заказывает видео для истории вызывающего. Доступно
// только premium.
func (s *StoryService) GenerateVideo(ctx context.Context, p *gate.Principal, id string) (string, error) {
	const op = "services.story.GenerateVideo"
	log := s.log.With(slog.String("op", op))

	if err := p.Require(gate.Authenticated); err != nil {
		return "", err
	}

	user, err := s.repo.UserByID(ctx, p.UserID)
	if err != nil {
		return "", s.userErr(op, err)
	}
	if !entitlement.CanGenerateVideo(user, s.now()) {
		metrics.EntitlementDenials.WithLabelValues("stories.generateVideo").Inc()
		return "", apperr.ErrPremiumRequired
	}

	story, err := s.Get(ctx, p, id)
	if err != nil {
		return "", err
	}

	url, err := s.video.GenerateVideo(ctx, story)
	if err != nil {
		log.Error("video provider failed", slog.String("story_id", id), sl.Err(err))
		return "", apperr.ErrUpstream
	}

	if err := s.repo.SetStoryVideo(ctx, id, p.UserID, url); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperr.NotFound("story")
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return url, nil
}

// userErr переводит отсутствие пользователя токена в отказ доступа.
func (s *StoryService) userErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrUnauthorized
	}
	return fmt.Errorf("%s: %w", op, err)
}
