// Package users реализует HTTP-обработчик списка пользователей для панели администратора.
package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/stories/list"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс получения списка пользователей.
type Service interface {
	ListUsers(ctx context.Context, p *gate.Principal, limit, offset int) ([]models.Profile, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.users"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset, err := list.Paging(r)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	users, err := h.service.ListUsers(r.Context(), gate.FromContext(r.Context()), limit, offset)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	response.OK(w, r, users)
}
