// Package status реализует HTTP-обработчик состояния подписки и квоты.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
	subscriptionservice "github.com/magabrotheeeer/social-stories/internal/services/subscription"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс получения состояния подписки.
type Service interface {
	Status(ctx context.Context, p *gate.Principal) (subscriptionservice.Status, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	st, err := h.service.Status(r.Context(), gate.FromContext(r.Context()))
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	response.OK(w, r, st)
}
