package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/http/response"
	"github.com/magabrotheeeer/social-stories/internal/lib/apperr"
	"github.com/magabrotheeeer/social-stories/internal/ratelimit"
)

// FloodGuard ограничивает общий поток запросов к процессу. Защищает
// хранилище лимитера и базу от всплесков, не заменяя учёт по ключам.
func FloodGuard(rps float64, burst int, log *slog.Logger) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests", slog.String("request_id", middleware.GetReqID(r.Context())))
				response.FromError(w, r, log, apperr.RateLimited(0))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit расходует попытку api-default на каждый запрос. Ключ —
// пользователь из контекста, для анонимных запросов — IP клиента.
func RateLimit(l Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RateLimit"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			identifier := ClientIP(r)
			if p := gate.FromContext(r.Context()); !p.Anonymous() {
				identifier = "user:" + p.UserID
			}

			d, err := l.Consume(r.Context(), identifier, ratelimit.ActionAPIDefault)
			if err != nil {
				response.FromError(w, r, log, err)
				return
			}
			if !d.Allowed {
				response.FromError(w, r, log, apperr.RateLimited(d.RetryAfter(timeNow())))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP возвращает IP клиента. RemoteAddr уже переписан
// middleware.RealIP, если запрос пришёл через прокси.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
