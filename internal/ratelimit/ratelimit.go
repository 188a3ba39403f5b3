package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/metrics"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

// ApplyFunc — чистый шаг лимитера: по текущей записи (found=false, если
// её нет) возвращает запись для сохранения и решение.
type ApplyFunc func(rec models.RateLimitRecord, found bool) (models.RateLimitRecord, bool)

// Store атомарно применяет шаг к записи (identifier, action).
type Store interface {
	// Consume читает запись, вызывает apply и сохраняет результат как одну
	// атомарную операцию относительно других вызовов с тем же ключом.
	Consume(ctx context.Context, identifier, action string, apply ApplyFunc) (bool, error)
	// Sweep удаляет записи с reset_at < now и возвращает их количество.
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// Decision — результат проверки.
type Decision struct {
	Allowed bool
	ResetAt time.Time // Конец текущего окна, если известен
}

// RetryAfter возвращает время до конца окна относительно now.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || d.ResetAt.IsZero() || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Step — алгоритм фиксированного окна. Новая или истёкшая запись открывает
// окно со счётчиком 1; исчерпанная запись не меняется; иначе счётчик растёт.
func Step(rec models.RateLimitRecord, found bool, p Policy, now time.Time) (models.RateLimitRecord, bool) {
	if !found || now.After(rec.ResetAt) {
		rec.Count = 1
		rec.ResetAt = now.Add(p.Window)
		return rec, true
	}
	if rec.Count >= p.Max {
		return rec, false
	}
	rec.Count++
	return rec, true
}

// Limiter проверяет и расходует попытки согласно политикам.
type Limiter struct {
	store    Store
	policies map[Action]Policy
	log      *slog.Logger
	now      func() time.Time
}

// New создаёт Limiter. Политики проверяются заранее, при загрузке конфига.
func New(store Store, policies map[Action]Policy, log *slog.Logger) *Limiter {
	return &Limiter{
		store:    store,
		policies: policies,
		log:      log,
		now:      time.Now,
	}
}

// CheckAndConsume расходует одну попытку и сообщает, разрешена ли она.
func (l *Limiter) CheckAndConsume(ctx context.Context, identifier string, action Action) (bool, error) {
	d, err := l.Consume(ctx, identifier, action)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// Consume расходует одну попытку и возвращает решение вместе с концом окна.
// Сбой хранилища не возвращается как ошибка: решение принимается по FailOpen.
func (l *Limiter) Consume(ctx context.Context, identifier string, action Action) (Decision, error) {
	const op = "ratelimit.Consume"

	p, ok := l.policies[action]
	if !ok {
		return Decision{}, fmt.Errorf("%s: %w: %q", op, ErrUnknownAction, action)
	}

	now := l.now()
	var next models.RateLimitRecord
	allowed, err := l.store.Consume(ctx, NormalizeIdentifier(identifier), string(action),
		func(rec models.RateLimitRecord, found bool) (models.RateLimitRecord, bool) {
			var ok bool
			next, ok = Step(rec, found, p, now)
			return next, ok
		})
	if err != nil {
		if p.FailOpen {
			l.log.Warn("rate limit store unavailable, allowing",
				slog.String("op", op), slog.String("action", string(action)), sl.Err(err))
			metrics.RateLimitDecisions.WithLabelValues(string(action), metrics.DecisionStoreErrorAllowed).Inc()
			return Decision{Allowed: true}, nil
		}
		l.log.Error("rate limit store unavailable, rejecting",
			slog.String("op", op), slog.String("action", string(action)), sl.Err(err))
		metrics.RateLimitDecisions.WithLabelValues(string(action), metrics.DecisionStoreErrorRejected).Inc()
		return Decision{Allowed: false}, nil
	}

	decision := metrics.DecisionAllowed
	if !allowed {
		decision = metrics.DecisionRejected
	}
	metrics.RateLimitDecisions.WithLabelValues(string(action), decision).Inc()

	return Decision{Allowed: allowed, ResetAt: next.ResetAt}, nil
}

// Sweep удаляет истёкшие записи.
func (l *Limiter) Sweep(ctx context.Context) (int64, error) {
	return l.store.Sweep(ctx, l.now())
}

// NormalizeIdentifier приводит идентификатор к каноническому виду.
func NormalizeIdentifier(identifier string) string {
	id := strings.ToLower(strings.TrimSpace(identifier))
	if id == "" {
		return "anonymous"
	}
	return id
}
