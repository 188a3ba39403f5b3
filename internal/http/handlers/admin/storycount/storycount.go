// Package storycount реализует HTTP-обработчик обнуления счётчика созданных историй.
package storycount

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
	ResetStoryCount(ctx context.Context, p *gate.Principal, userID string) (models.Profile, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.storycount"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	profile, err := h.service.ResetStoryCount(r.Context(), gate.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("story count reset", slog.String("user_id", profile.ID))
	response.OK(w, r, profile)
}
