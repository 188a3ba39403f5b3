package socialstories

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/activity"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/extend"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/password"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/premium"
	adminremove "github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/remove"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/role"
	adminsettings "github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/settings"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/stats"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/storycount"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/admin/users"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/health"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/stories/create"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/stories/list"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/stories/read"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/stories/remove"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/stories/video"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/social-stories/internal/http/middlewarectx"
	"github.com/magabrotheeeer/social-stories/internal/ratelimit"
)

// Limiter расходует попытку api-default для вызывающего.
type Limiter interface {
	Consume(ctx context.Context, identifier string, action ratelimit.Action) (ratelimit.Decision, error)
}

// RouterOptions — параметры маршрутизатора, не относящиеся к сервисам.
type RouterOptions struct {
	GlobalRPS   float64
	GlobalBurst int
	Health      map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services, opts RouterOptions) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.Metrics,
		middlewarectx.FloodGuard(opts.GlobalRPS, opts.GlobalBurst, logger),
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Вход доступен в режиме обслуживания, иначе администратор не получит токен.
		r.Post("/auth/login", login.New(logger, svc.Auth).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.Maintenance(svc.Settings, svc.Gate, logger))

			r.Post("/auth/register", register.New(logger, svc.Auth).ServeHTTP)

			// Группа с JWT аутентификацией
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.Authorize(svc.Gate, gate.Authenticated, logger))
				r.Use(middlewarectx.RateLimit(svc.Limiter, logger))

				r.Get("/auth/me", me.New(logger, svc.Auth).ServeHTTP)

				r.Post("/stories", create.New(logger, svc.Stories).ServeHTTP)
				r.Get("/stories", list.New(logger, svc.Stories).ServeHTTP)
				r.Get("/stories/{id}", read.New(logger, svc.Stories).ServeHTTP)
				r.Delete("/stories/{id}", remove.New(logger, svc.Stories).ServeHTTP)
				r.Post("/stories/{id}/video", video.New(logger, svc.Stories).ServeHTTP)

				r.Get("/subscription", status.New(logger, svc.Subscription).ServeHTTP)
				r.Post("/subscription/cancel", cancel.New(logger, svc.Subscription).ServeHTTP)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.Authorize(svc.Gate, gate.Admin, logger))
				r.Use(middlewarectx.RateLimit(svc.Limiter, logger))

				settings := adminsettings.New(logger, svc.Admin)

				r.Get("/users", users.New(logger, svc.Admin).ServeHTTP)
				r.Get("/stats", stats.New(logger, svc.Admin).ServeHTTP)
				r.Post("/users/{id}/premium", premium.New(logger, svc.Admin).ServeHTTP)
				r.Post("/users/{id}/subscription", extend.New(logger, svc.Admin).ServeHTTP)
				r.Post("/users/{id}/password", password.New(logger, svc.Admin).ServeHTTP)
				r.Post("/users/{id}/admin", role.New(logger, svc.Admin).ServeHTTP)
				r.Post("/users/{id}/stories-generated/reset", storycount.New(logger, svc.Admin).ServeHTTP)
				r.Delete("/users/{id}", adminremove.New(logger, svc.Admin).ServeHTTP)
				r.Get("/activity", activity.New(logger, svc.Admin).ServeHTTP)
				r.Get("/settings", settings.Get)
				r.Put("/settings", settings.Update)
			})
		})
	})

	r.Get("/healthz", health.New(logger, opts.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
