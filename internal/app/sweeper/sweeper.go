// Package sweeper содержит приложение периодической очистки: истёкшие
// записи лимитера, истёкшие подписки и журнал действий сверх лимита.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/app/bootstrap"
	"github.com/magabrotheeeer/social-stories/internal/config"
	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	sweeperservice "github.com/magabrotheeeer/social-stories/internal/services/sweeper"
)

// App представляет приложение очистки.
type App struct {
	sweeperService *sweeperservice.SweeperService
	deps           *bootstrap.Deps
	interval       time.Duration
	logger         *slog.Logger
}

// New создает новый экземпляр приложения очистки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		sweeperService: sweeperservice.NewSweeperService(deps.Limiter, deps.Repo, deps.Ledger, deps.Notifier, logger),
		deps:           deps,
		interval:       cfg.Sweeper.Interval,
		logger:         logger,
	}, nil
}

// Run выполняет очистку каждые interval до отмены ctx.
func (a *App) Run(ctx context.Context) {
	a.logger.Info("sweeper started", slog.Duration("interval", a.interval))
	a.sweeperService.Run(ctx, a.interval)
	a.close()
	a.logger.Info("sweeper stopped")
}

// RunOnce выполняет один проход очистки.
func (a *App) RunOnce(ctx context.Context) error {
	defer a.close()
	return a.sweeperService.RunOnce(ctx)
}

func (a *App) close() {
	if err := a.deps.Close(); err != nil {
		a.logger.Error("failed to close dependencies", sl.Err(err))
	}
}
