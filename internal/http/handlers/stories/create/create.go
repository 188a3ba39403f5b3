// Package create реализует HTTP-обработчик создания истории.
//
// Handler принимает JSON с уже сгенерированным текстом и страницами истории,
// передаёт его сервису, который проверяет бесплатную квоту и атомарно
// списывает её вместе с сохранением истории. Исчерпанная квота даёт 402.
package create

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

// Handler управляет HTTP-запросами на создание историй.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики историй
}

// Service описывает интерфейс бизнес-логики создания истории.
type Service interface {
	Create(ctx context.Context, p *gate.Principal, in models.NewStory) (models.Story, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stories.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.NewStory
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}

	story, err := h.service.Create(r.Context(), gate.FromContext(r.Context()), req)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("story created", slog.String("story_id", story.ID))
	response.Created(w, r, story)
}
