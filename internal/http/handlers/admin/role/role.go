// Package role реализует HTTP-обработчик переключения роли администратора.
// Над собственной учётной записью операция запрещена.
package role

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	ToggleAdmin(ctx context.Context, p *gate.Principal, userID string) (models.Profile, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.role"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	profile, err := h.service.ToggleAdmin(r.Context(), gate.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("admin role toggled", slog.String("user_id", profile.ID))
	response.OK(w, r, profile)
}
