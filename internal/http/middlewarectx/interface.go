package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/ratelimit"
)

// Authorizer проверяет токен запроса для требуемого уровня доступа.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string, required gate.Tier) (*gate.Principal, error)
}

// SettingsProvider отдаёт текущие настройки платформы.
type SettingsProvider interface {
	Get(ctx context.Context) (models.AdminSettings, error)
}

// Limiter расходует попытку для идентификатора и действия.
type Limiter interface {
	Consume(ctx context.Context, identifier string, action ratelimit.Action) (ratelimit.Decision, error)
}
