// Package middlewarectx содержит HTTP middleware: проверку токена и уровня
// доступа, режим обслуживания, ограничение частоты запросов и метрики.
//
// Authorize проверяет заголовок Authorization через Authorization Gate и
// кладёт Principal в контекст запроса. Любой отказ отдаётся как 401 с
// одинаковым сообщением.
package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
)

// Authorize возвращает middleware, требующий уровень доступа tier.
func Authorize(g Authorizer, tier gate.Tier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authorize"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("tier", tier.String()),
			)

			p, err := g.Authorize(r.Context(), gate.BearerToken(r.Header.Get("Authorization")), tier)
			if err != nil {
				response.FromError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(gate.WithPrincipal(r.Context(), p)))
		})
	}
}

// Maintenance возвращает middleware, который в режиме обслуживания
// пропускает только администраторов.
func Maintenance(settings SettingsProvider, g Authorizer, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Maintenance"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			s, err := settings.Get(r.Context())
			if err != nil {
				response.FromError(w, r, log, err)
				return
			}
			if s.MaintenanceMode {
				bearer := gate.BearerToken(r.Header.Get("Authorization"))
				if _, err := g.Authorize(r.Context(), bearer, gate.Admin); err != nil {
					response.FromError(w, r, log, apperr.ErrMaintenance)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
