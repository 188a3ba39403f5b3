// Package remove реализует HTTP-обработчик удаления истории владельцем.
// Удаление не возвращает единицу бесплатной квоты.
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

// Service описывает интерфейс удаления истории.
type Service interface {
	Delete(ctx context.Context, p *gate.Principal, id string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stories.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), gate.FromContext(r.Context()), id); err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("story deleted", slog.String("story_id", id))
	response.OK(w, r, map[string]any{"deleted": true})
}
