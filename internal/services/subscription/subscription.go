// Package services содержит бизнес-логику подписки вызывающего:
// статус тарифа и квоты и отмену premium.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/entitlement"
	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

// SubscriptionRepository определяет методы для работы с пользователями в хранилище.
type SubscriptionRepository interface {
	storage.Transactor
	UserByID(ctx context.Context, id string) (models.User, error)
}

// SettingsProvider отдаёт текущие настройки платформы.
type SettingsProvider interface {
	Get(ctx context.Context) (models.AdminSettings, error)
}

// Notifier публикует события подписки после фиксации изменений.
type Notifier interface {
	SubscriptionChanged(ctx context.Context, u models.User, kind string)
}

// Status — состояние тарифа и квоты пользователя.
type Status struct {
	IsPremium            bool       `json:"is_premium"`
	SubscriptionEndDate  *time.Time `json:"subscription_end_date,omitempty"`
	Active               bool       `json:"active"`
	StoriesGenerated     int        `json:"stories_generated"`
	FreeStoryLimit       int        `json:"free_story_limit"`
	RemainingFreeStories int        `json:"remaining_free_stories"` // -1 для premium
	CanGenerateVideo     bool       `json:"can_generate_video"`
	PremiumPriceCents    int        `json:"premium_price_cents"`
}

// SubscriptionService реализует операции над подпиской вызывающего.
type SubscriptionService struct {
	repo     SubscriptionRepository
	settings SettingsProvider
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, settings SettingsProvider, notifier Notifier, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		settings: settings,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Status возвращает тариф, дату окончания и остаток бесплатной квоты.
func (s *SubscriptionService) Status(ctx context.Context, p *gate.Principal) (Status, error) {
	const op = "services.subscription.Status"
	if err := p.Require(gate.Authenticated); err != nil {
		return Status{}, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.repo.UserByID(ctx, p.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return Status{}, apperr.ErrUnauthorized
	}
	if err != nil {
		return Status{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	return Status{
		IsPremium:            entitlement.PremiumActive(user, now),
		SubscriptionEndDate:  user.SubscriptionEndDate,
		Active:               entitlement.HasActiveSubscription(user, now),
		StoriesGenerated:     user.StoriesGenerated,
		FreeStoryLimit:       settings.FreeStoryLimit,
		RemainingFreeStories: entitlement.RemainingFreeStories(user, settings.FreeStoryLimit, now),
		CanGenerateVideo:     entitlement.CanGenerateVideo(user, now),
		PremiumPriceCents:    settings.PremiumPriceCents,
	}, nil
}

// Cancel снимает premium вызывающего. Повторная отмена ничего не меняет
// и событие не публикует.
func (s *SubscriptionService) Cancel(ctx context.Context, p *gate.Principal) (models.Profile, error) {
	const op = "services.subscription.Cancel"
	log := s.log.With(slog.String("op", op))

	if err := p.Require(gate.Authenticated); err != nil {
		return models.Profile{}, err
	}

	var (
		user    models.User
		changed bool
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		current, err := tx.UserByID(ctx, p.UserID)
		if err != nil {
			return err
		}
		if !current.IsPremium && current.SubscriptionEndDate == nil {
			user = current
			return nil
		}
		revoked := entitlement.RevokePremium(current)
		user, err = tx.UpdateUser(ctx, p.UserID, models.UserUpdate{
			IsPremium:           &revoked.IsPremium,
			SubscriptionEndDate: &sql.NullTime{},
		})
		changed = err == nil
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return models.Profile{}, apperr.ErrUnauthorized
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	if changed {
		log.Info("subscription cancelled", slog.String("user_id", p.UserID))
		s.notifier.SubscriptionChanged(ctx, user, models.SubscriptionCancelled)
	}
	return user.Profile(), nil
}
