// Package services содержит регистрацию, вход и профиль пользователя.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/ratelimit"
	"github.com/magabrotheeeer/social-stories/internal/storage"
)

// UserRepository описывает контракт для работы с пользователями в хранилище.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя; занятый email — storage.ErrEmailExists.
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	// UserByEmail ищет пользователя без учёта регистра email.
	UserByEmail(ctx context.Context, email string) (models.User, error)
	// UserByID возвращает пользователя по идентификатору.
	UserByID(ctx context.Context, id string) (models.User, error)
}

// Limiter расходует попытки входа и регистрации.
type Limiter interface {
	Consume(ctx context.Context, identifier string, action ratelimit.Action) (ratelimit.Decision, error)
}

// Credentials хэширует пароли и выпускает токены.
type Credentials interface {
	HashPassword(plain string) (string, error)
	VerifyPassword(plain, hash string) bool
	VerifyDummy(plain string)
	IssueToken(userID, email string, isAdmin bool) (string, error)
}

// SettingsProvider отдаёт текущие настройки платформы.
type SettingsProvider interface {
	Get(ctx context.Context) (models.AdminSettings, error)
}

// RegisterInput — данные регистрации.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	ClientIP string `json:"-"`
}

// LoginInput — данные входа.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// Session — результат успешного входа или регистрации.
type Session struct {
	UserID  string         `json:"user_id"`
	Token   string         `json:"token"`
	Profile models.Profile `json:"user"`
}

// AuthService отвечает за регистрацию, вход и профиль.
type AuthService struct {
	users    UserRepository
	limiter  Limiter
	creds    Credentials
	settings SettingsProvider
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, limiter Limiter, creds Credentials, settings SettingsProvider, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		limiter:  limiter,
		creds:    creds,
		settings: settings,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// Register создаёт пользователя и сразу выдаёт токен. Попытки
// ограничиваются по IP клиента.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	const op = "services.auth.Register"
	log := s.log.With(slog.String("op", op))

	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Session{}, apperr.FromValidation(err)
	}

	if err := s.consume(ctx, in.ClientIP, ratelimit.ActionRegister); err != nil {
		log.Info("registration rate limited", slog.String("client_ip", in.ClientIP))
		return Session{}, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if !settings.EnableRegistration {
		return Session{}, apperr.ErrRegistrationDisabled
	}

	hash, err := s.creds.HashPassword(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, storage.ErrEmailExists) {
		return Session{}, apperr.ErrEmailExists
	}
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	return s.session(user)
}

// Login проверяет пароль и выдаёт токен. Попытки ограничиваются по email;
// неизвестный email и неверный пароль неразличимы.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	const op = "services.auth.Login"

	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return Session{}, apperr.FromValidation(err)
	}

	if err := s.consume(ctx, in.Email, ratelimit.ActionLogin); err != nil {
		return Session{}, err
	}

	user, err := s.users.UserByEmail(ctx, in.Email)
	if errors.Is(err, storage.ErrNotFound) {
		s.creds.VerifyDummy(in.Password)
		return Session{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if !s.creds.VerifyPassword(in.Password, user.PasswordHash) {
		return Session{}, apperr.ErrInvalidCredentials
	}
	return s.session(user)
}

// Profile возвращает профиль вызывающего по актуальной записи.
func (s *AuthService) Profile(ctx context.Context, p *gate.Principal) (models.Profile, error) {
	const op = "services.auth.Profile"
	if err := p.Require(gate.Authenticated); err != nil {
		return models.Profile{}, err
	}
	user, err := s.users.UserByID(ctx, p.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Profile{}, apperr.ErrUnauthorized
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	return user.Profile(), nil
}

func (s *AuthService) consume(ctx context.Context, identifier string, action ratelimit.Action) error {
	d, err := s.limiter.Consume(ctx, identifier, action)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return apperr.RateLimited(d.RetryAfter(s.now()))
	}
	return nil
}

func (s *AuthService) session(user models.User) (Session, error) {
	const op = "services.auth.session"
	token, err := s.creds.IssueToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return Session{UserID: user.ID, Token: token, Profile: user.Profile()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
