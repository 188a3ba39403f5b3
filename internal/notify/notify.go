// Package notify публикует события подписки для сервиса уведомлений.
// Публикация best-effort: вызывается после фиксации транзакции, ошибка
// только логируется.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

// Publisher отправляет событие в брокер.
type Publisher interface {
	PublishSubscriptionEvent(ctx context.Context, event models.SubscriptionEvent) error
}

// Notifier собирает события из пользователей. Нулевой Notifier
// и Notifier без Publisher ничего не отправляют.
type Notifier struct {
	pub Publisher
	log *slog.Logger
	now func() time.Time
}

// New создаёт Notifier. pub может быть nil, если брокер не настроен.
func New(pub Publisher, log *slog.Logger) *Notifier {
	return &Notifier{pub: pub, log: log, now: time.Now}
}

// Event строит событие по состоянию пользователя после изменения.
func Event(u models.User, kind string, at time.Time) models.SubscriptionEvent {
	return models.SubscriptionEvent{
		UserID:     u.ID,
		Email:      u.Email,
		Kind:       kind,
		IsPremium:  u.IsPremium,
		EndDate:    u.SubscriptionEndDate,
		OccurredAt: at.UTC(),
	}
}

// SubscriptionChanged публикует событие kind для пользователя u.
func (n *Notifier) SubscriptionChanged(ctx context.Context, u models.User, kind string) {
	const op = "notify.SubscriptionChanged"
	if n == nil || n.pub == nil {
		return
	}
	if err := n.pub.PublishSubscriptionEvent(ctx, Event(u, kind, n.now())); err != nil {
		n.log.Warn("failed to publish subscription event",
			slog.String("op", op),
			slog.String("user_id", u.ID),
			slog.String("kind", kind),
			sl.Err(err))
	}
}
