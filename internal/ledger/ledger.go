// Package ledger ведёт журнал административных действий. Запись делается
// в той же транзакции, что и само действие: если журнал не записан,
// действие откатывается. Хранятся только последние Retention записей.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/metrics"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

// Retention — сколько последних записей хранится.
const Retention = 100

// Action — тег действия в журнале.
type Action string

const (
	UserPremiumToggled       Action = "user.premium_toggled"
	UserSubscriptionExtended Action = "user.subscription_extended"
	UserPasswordReset        Action = "user.password_reset"
	UserAdminToggled         Action = "user.admin_toggled"
	UserDeleted              Action = "user.deleted"
	UserStoryCountReset      Action = "user.story_count_reset"
	SettingsUpdated          Action = "settings.updated"
)

// Appender пишет запись внутри транзакции. Реализуется storage.Tx.
type Appender interface {
	AppendActivity(ctx context.Context, entry models.ActivityLogEntry, retain int) error
}

// Reader читает и обрезает журнал вне транзакций.
type Reader interface {
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityLogEntry, error)
	PruneActivity(ctx context.Context, retain int) (int64, error)
}

// Ledger — журнал действий администраторов.
type Ledger struct {
	store Reader
	log   *slog.Logger
	now   func() time.Time
}

// New создаёт Ledger.
func New(store Reader, log *slog.Logger) *Ledger {
	return &Ledger{store: store, log: log, now: time.Now}
}

// Append добавляет запись через tx. Ошибка возвращается вызывающему,
// который обязан откатить транзакцию.
func (l *Ledger) Append(ctx context.Context, tx Appender, action Action, actorUserID, details string) error {
	const op = "ledger.Append"

	entry := models.ActivityLogEntry{
		ID:          uuid.NewString(),
		Timestamp:   l.now().UTC(),
		Action:      string(action),
		ActorUserID: actorUserID,
		Details:     details,
	}
	if err := tx.AppendActivity(ctx, entry, Retention); err != nil {
		metrics.LedgerAppendFailures.Inc()
		l.log.Error("failed to append activity entry",
			slog.String("op", op), slog.String("action", string(action)),
			slog.String("actor_user_id", actorUserID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Recent возвращает последние записи, новые первыми. limit ограничен Retention.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]models.ActivityLogEntry, error) {
	const op = "ledger.Recent"
	if limit <= 0 || limit > Retention {
		limit = Retention
	}
	entries, err := l.store.RecentActivity(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

// Prune удаляет записи сверх Retention. Идемпотентна.
func (l *Ledger) Prune(ctx context.Context) (int64, error) {
	const op = "ledger.Prune"
	n, err := l.store.PruneActivity(ctx, Retention)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
