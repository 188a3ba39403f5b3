// Package list реализует HTTP-обработчик списка историй текущего пользователя
// с пагинацией через query-параметры limit и offset.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс получения списка историй.
type Service interface {
	List(ctx context.Context, p *gate.Principal, limit, offset int) ([]models.Story, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stories.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset, err := Paging(r)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	stories, err := h.service.List(r.Context(), gate.FromContext(r.Context()), limit, offset)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}
	response.OK(w, r, stories)
}

// Paging читает limit и offset из query. Отсутствующие значения — 0.
func Paging(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, apperr.Validation("limit must be a non-negative integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, apperr.Validation("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
