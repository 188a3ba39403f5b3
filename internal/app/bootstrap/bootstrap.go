// Package bootstrap поднимает инфраструктуру, общую для API и фоновой
// очистки: хранилище, лимитер попыток, Redis, брокер и журнал действий.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/social-stories/internal/cache"
	"github.com/magabrotheeeer/social-stories/internal/config"
	"github.com/magabrotheeeer/social-stories/internal/http/handlers/health"
	"github.com/magabrotheeeer/social-stories/internal/ledger"
	"github.com/magabrotheeeer/social-stories/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/migrations"
	"github.com/magabrotheeeer/social-stories/internal/models"
	"github.com/magabrotheeeer/social-stories/internal/notify"
	"github.com/magabrotheeeer/social-stories/internal/ratelimit"
	"github.com/magabrotheeeer/social-stories/internal/storage"
	"github.com/magabrotheeeer/social-stories/internal/storage/memory"
	"github.com/magabrotheeeer/social-stories/internal/storage/postgresql"
)

// Repository — полный набор операций хранилища, который нужен сервисам.
// Реализуется postgresql.Storage и memory.Storage.
type Repository interface {
	storage.Transactor
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	UserStats(ctx context.Context) (models.UserStats, error)
	ListStories(ctx context.Context, userID string, limit, offset int) ([]models.Story, error)
	StoryByID(ctx context.Context, id string) (models.Story, error)
	DeleteStory(ctx context.Context, id, userID string) error
	SetStoryVideo(ctx context.Context, id, userID, videoURL string) error
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityLogEntry, error)
	PruneActivity(ctx context.Context, retain int) (int64, error)
	Settings(ctx context.Context) (models.AdminSettings, error)
	EnsureSettings(ctx context.Context, defaults models.AdminSettings) error
	ExpirePremium(ctx context.Context, now time.Time) ([]models.User, error)
	PromoteAdmins(ctx context.Context, emails []string) (int64, error)
}

var (
	_ Repository = (*postgresql.Storage)(nil)
	_ Repository = (*memory.Storage)(nil)
)

// Deps — поднятая инфраструктура. Redis и Publisher равны nil, если не настроены.
type Deps struct {
	Repo      Repository
	Limiter   *ratelimit.Limiter
	Ledger    *ledger.Ledger
	Notifier  *notify.Notifier
	Redis     *redis.Client
	Publisher *rabbitmq.Publisher
	Health    map[string]health.Pinger

	closers []func() error
}

// Open подключает хранилище (с миграциями для postgres), Redis, брокер
// и собирает лимитер с выбранным backend.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Deps, error) {
	const op = "bootstrap.Open"
	d := &Deps{Health: map[string]health.Pinger{}}

	var pg *postgresql.Storage
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		var err error
		pg, err = postgresql.New(ctx, cfg.StorageConnectionString)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.closers = append(d.closers, pg.Close)
		if err = migrations.Run(pg.DB, cfg.MigrationsPath); err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.Repo = pg
		d.Health["storage"] = pg
	default:
		log.Warn("using in-memory storage, data is lost on restart")
		d.Repo = memory.New()
	}

	if err := d.Repo.EnsureSettings(ctx, models.DefaultAdminSettings(cfg.FreeStoryLimit)); err != nil {
		d.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.AddressRedis != "" {
		client, err := cache.NewClient(ctx, cfg.RedisConnection)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.Redis = client
		d.closers = append(d.closers, client.Close)
		d.Health["redis"] = health.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.NewPublisher(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.Publisher = pub
		d.closers = append(d.closers, pub.Close)
		d.Notifier = notify.New(pub, log)
	} else {
		log.Info("rabbitmq is not configured, subscription events are not published")
		d.Notifier = notify.New(nil, log)
	}

	policies, err := cfg.RateLimitPolicies()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var store ratelimit.Store
	switch cfg.RateLimit.Backend {
	case config.DriverPostgres:
		if pg == nil {
			d.Close()
			return nil, fmt.Errorf("%s: rate limit backend postgres requires postgres storage", op)
		}
		store = pg.RateLimits()
	case config.BackendRedis:
		if d.Redis == nil {
			d.Close()
			return nil, fmt.Errorf("%s: rate limit backend redis requires redis connection", op)
		}
		store = ratelimit.NewRedisStore(d.Redis)
	default:
		store = ratelimit.NewMemoryStore()
	}
	d.Limiter = ratelimit.New(store, policies, log)
	d.Ledger = ledger.New(d.Repo, log)

	if len(cfg.BootstrapAdmins) > 0 {
		n, err := d.Repo.PromoteAdmins(ctx, cfg.BootstrapAdmins)
		if err != nil {
			log.Error("failed to promote bootstrap admins", sl.Err(err))
		} else if n > 0 {
			log.Info("bootstrap admins promoted", slog.Int64("count", n))
		}
	}

	return d, nil
}

// Close освобождает соединения в обратном порядке открытия.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
