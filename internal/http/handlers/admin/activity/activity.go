// Package activity реализует HTTP-обработчик чтения журнала действий администраторов.
package activity

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

type Service interface {
	ActivityLogs(ctx context.Context, p *gate.Principal, limit int) ([]models.ActivityLogEntry, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.activity"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, _, err := list.Paging(r)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	entries, err := h.service.ActivityLogs(r.Context(), gate.FromContext(r.Context()), limit)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	response.OK(w, r, entries)
}
