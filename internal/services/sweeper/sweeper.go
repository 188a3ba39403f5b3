package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/metrics"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

// Имена задач для логов и метрик.
const (
	TaskRateLimits = "rate_limits"
	TaskPremium    = "premium_expiry"
	TaskLedger     = "ledger_prune"
)

// RateLimitSweeper удаляет истёкшие записи лимитера.
type RateLimitSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// PremiumExpirer снимает premium с истёкшей датой окончания.
type PremiumExpirer interface {
	ExpirePremium(ctx context.Context, now time.Time) ([]models.User, error)
}

// LedgerPruner обрезает журнал действий.
type LedgerPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Notifier публикует события подписки.
type Notifier interface {
	SubscriptionChanged(ctx context.Context, u models.User, kind string)
}

// SweeperService выполняет периодическую очистку. Все задачи идемпотентны
// и могут выполняться одновременно несколькими экземплярами.
type SweeperService struct {
	limiter  RateLimitSweeper
	users    PremiumExpirer
	ledger   LedgerPruner
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewSweeperService создает новый экземпляр SweeperService.
func NewSweeperService(limiter RateLimitSweeper, users PremiumExpirer, ledger LedgerPruner, notifier Notifier, log *slog.Logger) *SweeperService {
	return &SweeperService{
		limiter:  limiter,
		users:    users,
		ledger:   ledger,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Run выполняет очистку сразу и затем каждые interval до отмены ctx.
func (s *SweeperService) Run(ctx context.Context, interval time.Duration) {
	_ = s.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет все задачи. Ошибка одной задачи не отменяет остальные.
func (s *SweeperService) RunOnce(ctx context.Context) error {
	s.log.Info("starting sweep")
	return errors.Join(
		s.task(TaskRateLimits, func() (int64, error) { return s.limiter.Sweep(ctx) }),
		s.task(TaskPremium, func() (int64, error) { return s.expirePremium(ctx) }),
		s.task(TaskLedger, func() (int64, error) { return s.ledger.Prune(ctx) }),
	)
}

func (s *SweeperService) expirePremium(ctx context.Context) (int64, error) {
	users, err := s.users.ExpirePremium(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		s.notifier.SubscriptionChanged(ctx, u, models.SubscriptionExpired)
	}
	return int64(len(users)), nil
}

func (s *SweeperService) task(name string, fn func() (int64, error)) error {
	const op = "services.sweeper.task"
	n, err := fn()
	if err != nil {
		metrics.SweeperRuns.WithLabelValues(name, "error").Inc()
		s.log.Error("sweep task failed", slog.String("op", op), slog.String("task", name), sl.Err(err))
		return fmt.Errorf("%s: %s: %w", op, name, err)
	}
	metrics.SweeperRuns.WithLabelValues(name, "ok").Inc()
	if n > 0 {
		s.log.Info("sweep task done", slog.String("task", name), slog.Int64("removed", n))
	}
	return nil
}
