// Package password реализует HTTP-обработчик сброса пароля пользователя администратором.
package password

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
)

// Request — тело запроса сброса пароля.
type Request struct {
	NewPassword string `json:"new_password"`
}

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	ResetPassword(ctx context.Context, p *gate.Principal, userID, newPassword string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.password"
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

	userID := chi.URLParam(r, "id")
	if err := h.service.ResetPassword(r.Context(), gate.FromContext(r.Context()), userID, req.NewPassword); err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("password reset", slog.String("user_id", userID))
	response.OK(w, r, map[string]any{"reset": true})
}
