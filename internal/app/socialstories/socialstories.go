// Package socialstories собирает HTTP API: сервисы, маршруты и сервер.
package socialstories

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/social-stories/internal/app/bootstrap"
	"github.com/magabrotheeeer/social-stories/internal/cache"
	"github.com/magabrotheeeer/social-stories/internal/config"
	"github.com/magabrotheeeer/social-stories/internal/credentials"
	"github.com/magabrotheeeer/social-stories/internal/gate"
	"github.com/magabrotheeeer/social-stories/internal/lib/jwt"
	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	adminservice "github.com/magabrotheeeer/social-stories/internal/services/admin"
	authservice "github.com/magabrotheeeer/social-stories/internal/services/auth"
	settingsservice "github.com/magabrotheeeer/social-stories/internal/services/settings"
	storyservice "github.com/magabrotheeeer/social-stories/internal/services/story"
	subscriptionservice "github.com/magabrotheeeer/social-stories/internal/services/subscription"
	"github.com/magabrotheeeer/social-stories/internal/videoprovider"
)

// ShutdownTimeout — сколько ждать завершения активных запросов.
const ShutdownTimeout = 15 * time.Second

type App struct {
	server *http.Server
	logger *slog.Logger
	deps   *bootstrap.Deps
}

// Services — сервисы, за которыми стоят маршруты.
type Services struct {
	Auth         *authservice.AuthService
	Stories      *storyservice.StoryService
	Subscription *subscriptionservice.SubscriptionService
	Admin        *adminservice.AdminService
	Settings     *settingsservice.SettingsService
	Gate         *gate.Gate
	Limiter      Limiter
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	secret := cfg.JWTSecretKey
	if secret == "" {
		secret, err = credentials.EphemeralSecret()
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		logger.Warn("jwt secret is not configured, using an ephemeral one: tokens will not survive a restart")
	}
	creds := credentials.New(jwt.NewJWTMaker(secret, cfg.Issuer, cfg.TokenTTL))

	// nil-интерфейс, а не (*cache.Cache)(nil): сервис настроек проверяет cache != nil.
	var settingsCache settingsservice.Cache
	if deps.Redis != nil {
		settingsCache = cache.New(deps.Redis)
	}
	settings := settingsservice.NewSettingsService(deps.Repo, settingsCache, cfg.SettingsCacheTTL, cfg.FreeStoryLimit, logger)

	video := videoprovider.NewClient(cfg.VideoProvider.BaseURL, cfg.VideoProvider.APIKey, cfg.VideoProvider.Timeout)
	if cfg.VideoProvider.BaseURL == "" {
		logger.Warn("video provider is not configured, video generation will fail")
	}

	svc := Services{
		Auth:         authservice.NewAuthService(deps.Repo, deps.Limiter, creds, settings, logger),
		Stories:      storyservice.NewStoryService(deps.Repo, video, settings, logger),
		Subscription: subscriptionservice.NewSubscriptionService(deps.Repo, settings, deps.Notifier, logger),
		Admin:        adminservice.NewAdminService(deps.Repo, deps.Ledger, creds, settings, deps.Notifier, logger),
		Settings:     settings,
		Gate:         gate.New(creds, deps.Repo, logger),
		Limiter:      deps.Limiter,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, svc, RouterOptions{
		GlobalRPS:   cfg.RateLimit.GlobalRPS,
		GlobalBurst: cfg.RateLimit.GlobalBurst,
		Health:      deps.Health,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		deps:   deps,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.closeDeps()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.closeDeps()
		return err
	}
}

func (a *App) closeDeps() {
	if err := a.deps.Close(); err != nil {
		a.logger.Error("failed to close dependencies", sl.Err(err))
	}
}
