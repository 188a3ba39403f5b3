// Package config предоставляет структуры и функции для загрузки и проверки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/magabrotheeeer/social-stories/internal/ratelimit"
)

// Допустимые значения storage_driver и rate_limit.backend.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	BackendRedis   = "redis"
)

// MinJWTSecretLength — минимальная длина секрета подписи токенов.
const MinJWTSecretLength = 32

var placeholderSecrets = []string{
	"change-me", "changeme", "secret", "your-secret-key", "jwt-secret", "test_secret_key",
}

// Config общая структура для хранения настроек
type Config struct {
	Env                     string        `yaml:"env" env:"APP_ENV" env-default:"local"`
	StorageDriver           string        `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string        `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	BootstrapAdmins         []string      `yaml:"bootstrap_admins" env:"BOOTSTRAP_ADMINS" env-separator:","`
	SettingsCacheTTL        time.Duration `yaml:"settings_cache_ttl" env-default:"30s"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	JWTToken                `yaml:"jwttoken"`
	Quota                   `yaml:"quota"`
	RateLimit               `yaml:"rate_limit"`
	RabbitMQ                `yaml:"rabbitmq"`
	VideoProvider           `yaml:"video_provider"`
	Sweeper                 `yaml:"sweeper"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает кэш настроек.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"168h"`
	Issuer       string        `yaml:"issuer" env-default:"social-stories"`
}

// Quota — значения квоты по умолчанию, пока администратор их не изменил.
type Quota struct {
	FreeStoryLimit int `yaml:"free_story_limit" env-default:"3"`
}

// PolicyConfig — переопределение политики лимитера для одного действия.
type PolicyConfig struct {
	Max      int           `yaml:"max"`
	Window   time.Duration `yaml:"window"`
	FailOpen bool          `yaml:"fail_open"`
}

// RateLimit — настройки лимитера попыток и глобального ограничителя потока.
type RateLimit struct {
	Backend     string                  `yaml:"backend" env:"RATE_LIMIT_BACKEND" env-default:"postgres"`
	Policies    map[string]PolicyConfig `yaml:"policies"`
	GlobalRPS   float64                 `yaml:"global_rps" env-default:"50"`
	GlobalBurst int                     `yaml:"global_burst" env-default:"100"`
}

// RabbitMQ — брокер для событий подписки. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"notifications"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// VideoProvider — внешний сервис генерации видео.
type VideoProvider struct {
	BaseURL string        `yaml:"base_url" env:"VIDEO_PROVIDER_URL"`
	APIKey  string        `yaml:"api_key" env:"VIDEO_PROVIDER_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env-default:"60s"`
}

// Sweeper — период фоновой очистки.
type Sweeper struct {
	Interval time.Duration `yaml:"interval" env-default:"5m"`
}

// SMTP — почтовый сервер процесса уведомлений.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
	StartTLS bool   `yaml:"starttls" env-default:"true"`
}

// MustLoad загружает конфиг из файла CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла, применяет переменные окружения и проверяет его.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case DriverPostgres:
		if c.StorageConnectionString == "" {
			errs = append(errs, errors.New("storage_connection_string is required for postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage_driver %q", c.StorageDriver))
	}

	switch c.RateLimit.Backend {
	case DriverPostgres:
		if c.StorageDriver != DriverPostgres {
			errs = append(errs, errors.New("rate_limit.backend postgres requires storage_driver postgres"))
		}
	case BackendRedis:
		if c.AddressRedis == "" {
			errs = append(errs, errors.New("rate_limit.backend redis requires redis_connection.addressredis"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend))
	}

	if _, err := c.RateLimitPolicies(); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.GlobalRPS <= 0 || c.RateLimit.GlobalBurst < 1 {
		errs = append(errs, errors.New("rate_limit.global_rps and global_burst must be positive"))
	}

	if c.FreeStoryLimit < 0 {
		errs = append(errs, errors.New("quota.free_story_limit must not be negative"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("jwttoken.token_ttl must be positive"))
	}
	if err := ValidateJWTSecret(c.JWTSecretKey); err != nil {
		errs = append(errs, err)
	}
	if c.Sweeper.Interval <= 0 {
		errs = append(errs, errors.New("sweeper.interval must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateJWTSecret проверяет заданный секрет. Пустой секрет допустим:
// сервис сгенерирует временный.
func ValidateJWTSecret(secret string) error {
	if secret == "" {
		return nil
	}
	if slices.Contains(placeholderSecrets, strings.ToLower(secret)) {
		return errors.New("jwttoken.jwt_secret_key is a placeholder value")
	}
	if len(secret) < MinJWTSecretLength {
		return fmt.Errorf("jwttoken.jwt_secret_key must be at least %d characters", MinJWTSecretLength)
	}
	return nil
}

// RateLimitPolicies объединяет встроенные политики с переопределениями.
func (c *Config) RateLimitPolicies() (map[ratelimit.Action]ratelimit.Policy, error) {
	policies := ratelimit.DefaultPolicies()
	for name, override := range c.RateLimit.Policies {
		action, err := ratelimit.ParseAction(name)
		if err != nil {
			return nil, fmt.Errorf("rate_limit.policies: %w", err)
		}
		p := ratelimit.Policy{Max: override.Max, Window: override.Window, FailOpen: override.FailOpen}
		if err := p.Validate(action); err != nil {
			return nil, err
		}
		policies[action] = p
	}
	return policies, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageDriver: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"RateLimit:\n"+
			"  Backend: %s\n",
		c.Env,
		c.StorageDriver,
		redact(c.StorageConnectionString),
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		redact(c.JWTSecretKey),
		c.TokenTTL,
		c.RateLimit.Backend,
	)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}
