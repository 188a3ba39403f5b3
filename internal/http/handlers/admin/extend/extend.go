// Package extend реализует HTTP-обработчик продления подписки на 1..12 месяцев.
package extend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

// Request — тело запроса продления.
type Request struct {
	Months int `json:"months"`
}

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	ExtendSubscription(ctx context.Context, p *gate.Principal, userID string, months int) (models.Profile, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.extend"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}

	profile, err := h.service.ExtendSubscription(r.Context(), gate.FromContext(r.Context()), chi.URLParam(r, "id"), req.Months)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("subscription extended", slog.String("user_id", profile.ID), slog.Int("months", req.Months))
	response.OK(w, r, profile)
}
