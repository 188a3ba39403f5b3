// Package services содержит административные операции. Каждая мутация
// выполняется в одной транзакции с записью в журнал действий: если запись
// журнала не удалась, мутация откатывается.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/social-stories/internal/entitlement"
	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/ledger"
	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

// Ограничения операций администратора.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72 // предел bcrypt
	DefaultListLimit  = 50
	MaxListLimit      = 200
)

// AdminRepository определяет методы хранилища для панели администратора.
type AdminRepository interface {
	storage.Transactor
	// ListUsers возвращает пользователей от новых к старым.
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	// UserStats возвращает агрегаты по пользователям и историям.
	UserStats(ctx context.Context) (models.UserStats, error)
}

// Ledger пишет и читает журнал действий.
type Ledger interface {
	Append(ctx context.Context, tx ledger.Appender, action ledger.Action, actorUserID, details string) error
	Recent(ctx context.Context, limit int) ([]models.ActivityLogEntry, error)
}

// PasswordHasher хэширует новый пароль.
type PasswordHasher interface {
	HashPassword(plain string) (string, error)
}

// SettingsProvider отдаёт и сбрасывает кэш настроек.
type SettingsProvider interface {
	Get(ctx context.Context) (models.AdminSettings, error)
	Invalidate(ctx context.Context)
}

// Notifier публикует события подписки после фиксации изменений.
type Notifier interface {
	SubscriptionChanged(ctx context.Context, u models.User, kind string)
}

// AdminService реализует операции панели администратора.
type AdminService struct {
	repo     AdminRepository
	ledger   Ledger
	hasher   PasswordHasher
	settings SettingsProvider
	notifier Notifier
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

// NewAdminService создает новый экземпляр AdminService.
func NewAdminService(repo AdminRepository, ledger Ledger, hasher PasswordHasher, settings SettingsProvider, notifier Notifier, log *slog.Logger) *AdminService {
	return &AdminService{
		repo:     repo,
		ledger:   ledger,
		hasher:   hasher,
		settings: settings,
		notifier: notifier,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// ListUsers возвращает профили пользователей с пагинацией.
func (s *AdminService) ListUsers(ctx context.Context, p *gate.Principal, limit, offset int) ([]models.Profile, error) {
	const op = "services.admin.ListUsers"
	if err := p.Require(gate.Admin); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	users, err := s.repo.ListUsers(ctx, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	profiles := make([]models.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// Stats возвращает агрегаты для панели.
func (s *AdminService) Stats(ctx context.Context, p *gate.Principal) (models.UserStats, error) {
	const op = "services.admin.Stats"
	if err := p.Require(gate.Admin); err != nil {
		return models.UserStats{}, err
	}
	stats, err := s.repo.UserStats(ctx)
	if err != nil {
		return models.UserStats{}, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

// TogglePremium включает premium на один месяц или снимает его вместе
// с датой окончания.
func (s *AdminService) TogglePremium(ctx context.Context, p *gate.Principal, userID string) (models.Profile, error) {
	const op = "services.admin.TogglePremium"
	if err := p.Require(gate.Admin); err != nil {
		return models.Profile{}, err
	}

	user, err := s.mutateUser(ctx, op, userID, func(ctx context.Context, tx storage.Tx, u models.User) (models.User, string, error) {
		var next models.User
		if u.IsPremium {
			next = entitlement.RevokePremium(u)
		} else {
			next = entitlement.ApplyGrant(u, 1, s.now())
		}
		updated, err := tx.UpdateUser(ctx, u.ID, subscriptionUpdate(next))
		if err != nil {
			return models.User{}, "", err
		}
		if err := s.ledger.Append(ctx, tx, ledger.UserPremiumToggled, p.UserID,
			fmt.Sprintf("user %s premium=%t", u.Email, updated.IsPremium)); err != nil {
			return models.User{}, "", err
		}
		return updated, models.SubscriptionChanged, nil
	})
	if err != nil {
		return models.Profile{}, err
	}
	return user.Profile(), nil
}

// ExtendSubscription продлевает подписку на months месяцев: активная
// продлевается от даты окончания, истёкшая отсчитывается от текущего момента.
func (s *AdminService) ExtendSubscription(ctx context.Context, p *gate.Principal, userID string, months int) (models.Profile, error) {
	const op = "services.admin.ExtendSubscription"
	if err := p.Require(gate.Admin); err != nil {
		return models.Profile{}, err
	}
	if err := entitlement.ValidateMonths(months); err != nil {
		return models.Profile{}, err
	}

	user, err := s.mutateUser(ctx, op, userID, func(ctx context.Context, tx storage.Tx, u models.User) (models.User, string, error) {
		next := entitlement.ApplyGrant(u, months, s.now())
		updated, err := tx.UpdateUser(ctx, u.ID, subscriptionUpdate(next))
		if err != nil {
			return models.User{}, "", err
		}
		if err := s.ledger.Append(ctx, tx, ledger.UserSubscriptionExtended, p.UserID,
			fmt.Sprintf("user %s extended by %d month(s) until %s",
				u.Email, months, updated.SubscriptionEndDate.Format(time.RFC3339))); err != nil {
			return models.User{}, "", err
		}
		return updated, models.SubscriptionChanged, nil
	})
	if err != nil {
		return models.Profile{}, err
	}
	return user.Profile(), nil
}

// ResetPassword задаёт пользователю новый пароль.
func (s *AdminService) ResetPassword(ctx context.Context, p *gate.Principal, userID, newPassword string) error {
	const op = "services.admin.ResetPassword"
	if err := p.Require(gate.Admin); err != nil {
		return err
	}
	if len(newPassword) < MinPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(newPassword) > MaxPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}

	hash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.mutateUser(ctx, op, userID, func(ctx context.Context, tx storage.Tx, u models.User) (models.User, string, error) {
		updated, err := tx.UpdateUser(ctx, u.ID, models.UserUpdate{PasswordHash: &hash})
		if err != nil {
			return models.User{}, "", err
		}
		if err := s.ledger.Append(ctx, tx, ledger.UserPasswordReset, p.UserID,
			fmt.Sprintf("password reset for user %s", u.Email)); err != nil {
			return models.User{}, "", err
		}
		return updated, "", nil
	})
	return err
}

// ToggleAdmin выдаёт или снимает роль администратора. Над собой запрещено.
func (s *AdminService) ToggleAdmin(ctx context.Context, p *gate.Principal, userID string) (models.Profile, error) {
	const op = "services.admin.ToggleAdmin"
	if err := p.Require(gate.Admin); err != nil {
		return models.Profile{}, err
	}
	if err := p.EnsureNotSelf(userID); err != nil {
		return models.Profile{}, err
	}

	user, err := s.mutateUser(ctx, op, userID, func(ctx context.Context, tx storage.Tx, u models.User) (models.User, string, error) {
		isAdmin := !u.IsAdmin
		updated, err := tx.UpdateUser(ctx, u.ID, models.UserUpdate{IsAdmin: &isAdmin})
		if err != nil {
			return models.User{}, "", err
		}
		if err := s.ledger.Append(ctx, tx, ledger.UserAdminToggled, p.UserID,
			fmt.Sprintf("user %s admin=%t", u.Email, isAdmin)); err != nil {
			return models.User{}, "", err
		}
		return updated, "", nil
	})
	if err != nil {
		return models.Profile{}, err
	}
	return user.Profile(), nil
}

// ResetStoryCount обнуляет счётчик созданных историй.
func (s *AdminService) ResetStoryCount(ctx context.Context, p *gate.Principal, userID string) (models.Profile, error) {
	const op = "services.admin.ResetStoryCount"
	if err := p.Require(gate.Admin); err != nil {
		return models.Profile{}, err
	}

	user, err := s.mutateUser(ctx, op, userID, func(ctx context.Context, tx storage.Tx, u models.User) (models.User, string, error) {
		zero := 0
		updated, err := tx.UpdateUser(ctx, u.ID, models.UserUpdate{StoriesGenerated: &zero})
		if err != nil {
			return models.User{}, "", err
		}
		if err := s.ledger.Append(ctx, tx, ledger.UserStoryCountReset, p.UserID,
			fmt.Sprintf("story count reset for user %s (was %d)", u.Email, u.StoriesGenerated)); err != nil {
			return models.User{}, "", err
		}
		return updated, "", nil
	})
	if err != nil {
		return models.Profile{}, err
	}
	return user.Profile(), nil
}

// DeleteUser удаляет пользователя вместе с историями. Себя удалить нельзя.
func (s *AdminService) DeleteUser(ctx context.Context, p *gate.Principal, userID string) error {
	const op = "services.admin.DeleteUser"
	if err := p.Require(gate.Admin); err != nil {
		return err
	}
	if err := p.EnsureNotSelf(userID); err != nil {
		return err
	}

	_, err := s.mutateUser(ctx, op, userID, func(ctx context.Context, tx storage.Tx, u models.User) (models.User, string, error) {
		if err := tx.DeleteUser(ctx, u.ID); err != nil {
			return models.User{}, "", err
		}
		if err := s.ledger.Append(ctx, tx, ledger.UserDeleted, p.UserID,
			fmt.Sprintf("deleted user %s", u.Email)); err != nil {
			return models.User{}, "", err
		}
		return u, "", nil
	})
	return err
}

// ActivityLogs возвращает последние записи журнала, новые первыми.
func (s *AdminService) ActivityLogs(ctx context.Context, p *gate.Principal, limit int) ([]models.ActivityLogEntry, error) {
	const op = "services.admin.ActivityLogs"
	if err := p.Require(gate.Admin); err != nil {
		return nil, err
	}
	entries, err := s.ledger.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if entries == nil {
		entries = []models.ActivityLogEntry{}
	}
	return entries, nil
}

// Settings возвращает текущие настройки платформы.
func (s *AdminService) Settings(ctx context.Context, p *gate.Principal) (models.AdminSettings, error) {
	const op = "services.admin.Settings"
	if err := p.Require(gate.Admin); err != nil {
		return models.AdminSettings{}, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return models.AdminSettings{}, fmt.Errorf("%s: %w", op, err)
	}
	return settings, nil
}

// UpdateSettings меняет настройки и сбрасывает их кэш.
func (s *AdminService) UpdateSettings(ctx context.Context, p *gate.Principal, upd models.SettingsUpdate) (models.AdminSettings, error) {
	const op = "services.admin.UpdateSettings"
	log := s.log.With(slog.String("op", op))

	if err := p.Require(gate.Admin); err != nil {
		return models.AdminSettings{}, err
	}
	if err := s.validate.Struct(upd); err != nil {
		return models.AdminSettings{}, apperr.FromValidation(err)
	}
	if upd.Empty() {
		return models.AdminSettings{}, apperr.Validation("no settings to update")
	}

	var updated models.AdminSettings
	err := s.repo.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		updated, err = tx.UpdateSettings(ctx, upd)
		if err != nil {
			return err
		}
		return s.ledger.Append(ctx, tx, ledger.SettingsUpdated, p.UserID, describeSettings(upd))
	})
	if err != nil {
		return models.AdminSettings{}, fmt.Errorf("%s: %w", op, err)
	}

	s.settings.Invalidate(ctx)
	log.Info("settings updated", slog.String("actor_user_id", p.UserID))
	return updated, nil
}

type userMutation func(ctx context.Context, tx storage.Tx, u models.User) (models.User, string, error)

// mutateUser блокирует пользователя, применяет fn в транзакции и после
// фиксации публикует событие, если fn вернула его вид.
func (s *AdminService) mutateUser(ctx context.Context, op, userID string, fn userMutation) (models.User, error) {
	var (
		result models.User
		kind   string
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		u, err := tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		result, kind, err = fn(ctx, tx, u)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, apperr.NotFound("user")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("admin action applied", slog.String("op", op), slog.String("target_user_id", userID))
	if kind != "" {
		s.notifier.SubscriptionChanged(ctx, result, kind)
	}
	return result, nil
}

func subscriptionUpdate(u models.User) models.UserUpdate {
	end := sql.NullTime{}
	if u.SubscriptionEndDate != nil {
		end = sql.NullTime{Time: *u.SubscriptionEndDate, Valid: true}
	}
	return models.UserUpdate{IsPremium: &u.IsPremium, SubscriptionEndDate: &end}
}

func describeSettings(upd models.SettingsUpdate) string {
	var parts []string
	if upd.FreeStoryLimit != nil {
		parts = append(parts, fmt.Sprintf("free_story_limit=%d", *upd.FreeStoryLimit))
	}
	if upd.EnableRegistration != nil {
		parts = append(parts, fmt.Sprintf("enable_registration=%t", *upd.EnableRegistration))
	}
	if upd.MaintenanceMode != nil {
		parts = append(parts, fmt.Sprintf("maintenance_mode=%t", *upd.MaintenanceMode))
	}
	if upd.PremiumPriceCents != nil {
		parts = append(parts, fmt.Sprintf("premium_price_cents=%d", *upd.PremiumPriceCents))
	}
	return "settings updated: " + strings.Join(parts, ", ")
}
