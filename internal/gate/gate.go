// Package gate решает, может ли запрос выполнить процедуру своего уровня
// доступа. Признак администратора в токене служит только подсказкой:
// для уровня Admin пользователь перечитывается из хранилища.
package gate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
	"github.com/magabrotheeeer/social-stories/internal/lib/jwt"
	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/metrics"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

// Tier — уровень доступа процедуры.
type Tier int

const (
	Public Tier = iota
	Authenticated
	Admin
)

func (t Tier) String() string {
	switch t {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	default:
		return "unknown"
	}
}

// TokenVerifier проверяет токен доступа.
type TokenVerifier interface {
	VerifyToken(token string) *jwt.CustomClaims
}

// UserReader читает актуальную запись пользователя.
type UserReader interface {
	UserByID(ctx context.Context, id string) (models.User, error)
}

// Principal — вызывающий после проверки.
type Principal struct {
	UserID string
	Email  string
	Tier   Tier // Достигнутый уровень
}

// Anonymous сообщает, что токен не предъявлен или невалиден.
func (p *Principal) Anonymous() bool {
	return p == nil || p.Tier == Public
}

// Require проверяет, что вызывающий достиг уровня tier.
func (p *Principal) Require(tier Tier) error {
	if tier == Public {
		return nil
	}
	if p == nil || p.Tier < tier {
		return apperr.ErrUnauthorized
	}
	return nil
}

// EnsureNotSelf запрещает администратору разрушительные действия над собой.
func (p *Principal) EnsureNotSelf(targetUserID string) error {
	if p != nil && p.UserID == targetUserID {
		return apperr.ErrSelfAction
	}
	return nil
}

// Gate проверяет токены и роль.
type Gate struct {
	tokens TokenVerifier
	users  UserReader
	log    *slog.Logger
}

// New создаёт Gate.
func New(tokens TokenVerifier, users UserReader, log *slog.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, log: log}
}

// Authorize проверяет bearer-токен для уровня required. Для Public ошибок
// нет: без валидного токена возвращается анонимный Principal. Любой отказ
// возвращается как apperr.ErrUnauthorized.
func (g *Gate) Authorize(ctx context.Context, bearer string, required Tier) (*Principal, error) {
	const op = "gate.Authorize"

	claims := g.tokens.VerifyToken(bearer)
	if claims == nil {
		if required == Public {
			return &Principal{Tier: Public}, nil
		}
		metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
		return nil, apperr.ErrUnauthorized
	}

	p := &Principal{UserID: claims.UserID, Email: claims.Email, Tier: Authenticated}
	if required < Admin {
		return p, nil
	}

	user, err := g.users.UserByID(ctx, claims.UserID)
	if err != nil {
		g.log.Warn("admin check: user lookup failed",
			slog.String("op", op), slog.String("user_id", claims.UserID), sl.Err(err))
		metrics.AuthFailures.WithLabelValues("admin_lookup").Inc()
		return nil, apperr.ErrUnauthorized
	}
	if !user.IsAdmin {
		metrics.AuthFailures.WithLabelValues("not_admin").Inc()
		return nil, apperr.ErrUnauthorized
	}
	p.Email = user.Email
	p.Tier = Admin
	return p, nil
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type ctxKey struct{}

// WithPrincipal кладёт Principal в контекст запроса.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext достаёт Principal из контекста; nil, если его нет.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}
