// Package remove реализует HTTP-обработчик удаления пользователя вместе с его историями.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	DeleteUser(ctx context.Context, p *gate.Principal, userID string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "id")
	if err := h.service.DeleteUser(r.Context(), gate.FromContext(r.Context()), userID); err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("user deleted", slog.String("user_id", userID))
	response.OK(w, r, map[string]any{"deleted": true})
}
