// Точка входа HRM Console — серверная веб-консоль HRM больницы.
// Загружает конфигурацию, создаёт клиент HRM backend, хранилища сессий
// и view state, брокер событий, сервисный слой и UI handlers,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Harinie05/HRM-sub002/internal/api/handlers"
	"github.com/Harinie05/HRM-sub002/internal/backend"
	"github.com/Harinie05/HRM-sub002/internal/config"
	"github.com/Harinie05/HRM-sub002/internal/events"
	"github.com/Harinie05/HRM-sub002/internal/repository"
	"github.com/Harinie05/HRM-sub002/internal/resource"
	"github.com/Harinie05/HRM-sub002/internal/server"
	"github.com/Harinie05/HRM-sub002/internal/service"
	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
	uihandlers "github.com/Harinie05/HRM-sub002/internal/ui/handlers"
	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
	uimiddleware "github.com/Harinie05/HRM-sub002/internal/ui/middleware"
)

func main() {
	// 0. Необязательный .env для локального запуска
	envErr := godotenv.Load()

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("HRM Console запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.Bool("dotenv", envErr == nil),
	)

	if os.Getenv("HC_DEPHEALTH_GROUP") == "" {
		logger.Warn("HC_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Каталог ресурсов и переводы
	catalog, err := resource.Default()
	if err != nil {
		logger.Error("Ошибка загрузки каталога ресурсов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Клиент HRM backend
	client, err := backend.New(cfg.BackendURL, cfg.BackendCACertPath, cfg.BackendTimeout, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент backend создан", slog.String("url", cfg.BackendURL))

	// 5. Redis (опционально): сессии, view state, события
	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis недоступен при старте", slog.String("error", err.Error()))
		} else {
			logger.Info("Redis подключён", slog.String("addr", cfg.RedisAddr))
		}
	}

	// 6. Хранилища
	var store auth.Store
	if cfg.SessionStore == config.SessionStoreRedis {
		store = auth.NewRedisStore(rdb, cfg.SessionTTL, cfg.SecureCookie)
	} else {
		store, err = auth.NewCookieStore(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookie)
		if err != nil {
			logger.Error("Ошибка создания хранилища сессий", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var views repository.ViewStateRepository
	var broker events.Broker
	if rdb != nil {
		views = repository.NewRedisViewState(rdb, cfg.ViewStateTTL)
		redisBroker := events.NewRedisBroker(rdb, cfg.EventsChannel, logger)
		if err := redisBroker.Start(ctx); err != nil {
			logger.Error("Ошибка подписки на канал событий", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisBroker.Close()
		broker = redisBroker
	} else {
		views = repository.NewMemoryViewState(cfg.ViewStateSize, cfg.ViewStateTTL)
		memBroker := events.NewMemoryBroker()
		defer memBroker.Close()
		broker = memBroker
	}
	logger.Info("Хранилища инициализированы",
		slog.String("session_store", cfg.SessionStore),
		slog.Bool("redis", rdb != nil),
	)

	// 7. Services
	data := service.NewDataLayer(client, catalog, views, logger)
	orgSvc := service.NewOrganizationService(client, catalog, broker, logger)
	dashboardSvc := service.NewDashboardService(data, logger)
	reportingSvc := service.NewReportingService(data, logger)
	onboardingSvc := service.NewOnboardingService(data, client, logger)

	// 8. topologymetrics — мониторинг HRM backend
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "hrm-console",
		Group:         cfg.DephealthGroup,
		BackendURL:    cfg.BackendURL,
		HealthPath:    cfg.BackendHealthPath,
		JWKSURL:       cfg.BackendJWKSURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 9. Readiness checkers
	checkers := map[string]handlers.ReadinessChecker{
		"backend": handlers.NewBackendChecker(dephealthSvc, client, cfg.BackendHealthPath),
	}
	if rdb != nil {
		checkers["redis"] = handlers.NewRedisChecker(rdb)
	}

	// 10. UI
	inspector, err := auth.NewTokenInspector(cfg.BackendJWKSURL, client.HTTPClient(), logger)
	if err != nil {
		logger.Error("Ошибка создания проверки токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	csrf := auth.NewCSRFManager(cfg.CSRFSecret)
	console := uihandlers.NewConsole(catalog, orgSvc, csrf, logger)

	components := &server.Components{
		Catalog:  catalog,
		Health:   handlers.NewHealthHandler(checkers),
		Sessions: uimiddleware.NewSessions(store, logger),
		Auth:     uimiddleware.NewUIAuth(inspector, logger),
		CSRF:     uimiddleware.NewCSRF(csrf, logger),
		Guard:    uimiddleware.NewGuard(console.Deny, logger),

		Login:        uihandlers.NewAuthHandler(client, store, data, csrf, logger),
		Dashboard:    uihandlers.NewDashboardHandler(console, dashboardSvc, logger),
		Resources:    uihandlers.NewResourceHandler(console, data, logger),
		Reporting:    uihandlers.NewReportingHandler(console, reportingSvc, logger),
		Onboarding:   uihandlers.NewOnboardingHandler(console, onboardingSvc, logger),
		Organization: uihandlers.NewOrganizationHandler(console, cfg.SecureCookie, logger),
		Events:       uihandlers.NewEventsHandler(broker, cfg.ClockInterval, logger),
	}

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, components)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("HRM Console остановлен")
}
