// Package video реализует HTTP-обработчик генерации видео по истории.
// Доступно только premium; ошибка внешнего сервиса отдаётся как 502.
package video

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

// Service описывает интерфейс генерации видео.
type Service interface {
	GenerateVideo(ctx context.Context, p *gate.Principal, id string) (string, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stories.video"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	url, err := h.service.GenerateVideo(r.Context(), gate.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	response.OK(w, r, map[string]any{"video_url": url})
}
