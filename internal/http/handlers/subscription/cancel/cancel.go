// Package cancel реализует HTTP-обработчик отмены подписки.
// Повторная отмена не является ошибкой.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс отмены подписки.
type Service interface {
	Cancel(ctx context.Context, p *gate.Principal) (models.Profile, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	profile, err := h.service.Cancel(r.Context(), gate.FromContext(r.Context()))
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("subscription cancelled", slog.String("user_id", profile.ID))
	response.OK(w, r, profile)
}
