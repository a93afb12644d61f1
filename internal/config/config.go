// Пакет config — загрузка и валидация конфигурации HRM Console
// из переменных окружения с префиксом HC_.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Version задаётся при сборке через -ldflags.
var Version = "dev"

// envPrefix — префикс всех переменных окружения.
const envPrefix = "HC"

// Допустимые хранилища сессий.
const (
	SessionStoreCookie = "cookie"
	SessionStoreRedis  = "redis"
)

// Config содержит все параметры конфигурации HRM Console.
type Config struct {
	// --- Сервер ---

	Port       int    `envconfig:"PORT" default:"8080"`
	LogLevelS  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat  string `envconfig:"LOG_FORMAT" default:"json"`
	Production bool   `envconfig:"PRODUCTION" default:"false"`

	// LogLevel вычисляется из LogLevelS при загрузке.
	LogLevel slog.Level `ignored:"true"`

	// --- HRM backend ---

	// Базовый URL REST backend (обязательный)
	BackendURL        string        `envconfig:"BACKEND_URL" required:"true"`
	BackendTimeout    time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s"`
	BackendCACertPath string        `envconfig:"BACKEND_CA_CERT_PATH"`
	// JWKS backend для проверки подписи токенов (опционально)
	BackendJWKSURL    string `envconfig:"BACKEND_JWKS_URL"`
	BackendHealthPath string `envconfig:"BACKEND_HEALTH_PATH" default:"/health"`

	// --- Сессии ---

	SessionStore  string        `envconfig:"SESSION_STORE" default:"cookie"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	SecureCookie  bool          `envconfig:"SECURE_COOKIE" default:"false"`
	CSRFSecret    string        `envconfig:"CSRF_SECRET" required:"true"`

	// --- Redis (сессии, view state, события) ---

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	EventsChannel string `envconfig:"EVENTS_CHANNEL" default:"hrm-console:events"`

	// --- View state ---

	ViewStateSize int           `envconfig:"VIEWSTATE_SIZE" default:"2048"`
	ViewStateTTL  time.Duration `envconfig:"VIEWSTATE_TTL" default:"30m"`

	// --- UI ---

	// Период тика часов в заголовке
	ClockInterval time.Duration `envconfig:"CLOCK_INTERVAL" default:"1s"`
	// Попыток входа в минуту с одного IP
	LoginRateLimit int `envconfig:"LOGIN_RATE_LIMIT" default:"10"`

	// --- topologymetrics ---

	DephealthGroup         string        `envconfig:"DEPHEALTH_GROUP" default:"hrm"`
	DephealthCheckInterval time.Duration `envconfig:"DEPHEALTH_CHECK_INTERVAL" default:"15s"`

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("чтение переменных окружения: %w", err)
	}

	var err error

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("HC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(cfg.LogLevelS)
	if err != nil {
		return nil, fmt.Errorf("HC_LOG_LEVEL: %w", err)
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("HC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.BackendURL, err = normalizeURL(cfg.BackendURL)
	if err != nil {
		return nil, fmt.Errorf("HC_BACKEND_URL: %w", err)
	}
	if cfg.BackendTimeout <= 0 {
		return nil, fmt.Errorf("HC_BACKEND_TIMEOUT: должен быть положительным, получено %v", cfg.BackendTimeout)
	}
	if !strings.HasPrefix(cfg.BackendHealthPath, "/") {
		cfg.BackendHealthPath = "/" + cfg.BackendHealthPath
	}

	switch cfg.SessionStore {
	case SessionStoreCookie:
	case SessionStoreRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("HC_REDIS_ADDR: обязателен при HC_SESSION_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("HC_SESSION_STORE: недопустимое значение %q, допустимые: cookie, redis", cfg.SessionStore)
	}

	if len(cfg.SessionSecret) < 16 {
		return nil, fmt.Errorf("HC_SESSION_SECRET: минимальная длина 16 символов")
	}
	if len(cfg.CSRFSecret) < 16 {
		return nil, fmt.Errorf("HC_CSRF_SECRET: минимальная длина 16 символов")
	}

	if cfg.ViewStateSize < 1 {
		return nil, fmt.Errorf("HC_VIEWSTATE_SIZE: значение %d должно быть больше 0", cfg.ViewStateSize)
	}
	if cfg.ClockInterval < 100*time.Millisecond {
		return nil, fmt.Errorf("HC_CLOCK_INTERVAL: минимальное значение 100ms, получено %v", cfg.ClockInterval)
	}
	if cfg.LoginRateLimit < 1 {
		return nil, fmt.Errorf("HC_LOGIN_RATE_LIMIT: значение %d должно быть больше 0", cfg.LoginRateLimit)
	}

	return cfg, nil
}

// RedisEnabled сообщает, настроено ли подключение к Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// normalizeURL проверяет схему и убирает trailing slash.
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("некорректный URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("недопустимая схема %q, допустимые: http, https", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("в URL %q отсутствует хост", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
