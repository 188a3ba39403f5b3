// Package settings реализует HTTP-обработчики чтения и изменения настроек платформы.
package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

// Service описывает операции над настройками.
type Service interface {
	Settings(ctx context.Context, p *gate.Principal) (models.AdminSettings, error)
	UpdateSettings(ctx context.Context, p *gate.Principal, upd models.SettingsUpdate) (models.AdminSettings, error)
}

// Handler обслуживает GET и PUT настроек.
type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// Get отдаёт текущие настройки.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.settings.Get"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	settings, err := h.service.Settings(r.Context(), gate.FromContext(r.Context()))
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	response.OK(w, r, settings)
}

// Update применяет частичное обновление: отсутствующие поля не меняются.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.settings.Update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var upd models.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), gate.FromContext(r.Context()), upd)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("settings updated")
	response.OK(w, r, settings)
}
