// Пакет server — HTTP-сервер HRM Console с graceful shutdown.
// Без TLS — TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	apierrors "github.com/Harinie05/HRM-sub002/internal/api/errors"
	"github.com/Harinie05/HRM-sub002/internal/api/handlers"
	"github.com/Harinie05/HRM-sub002/internal/api/middleware"
	"github.com/Harinie05/HRM-sub002/internal/config"
	"github.com/Harinie05/HRM-sub002/internal/resource"
	uihandlers "github.com/Harinie05/HRM-sub002/internal/ui/handlers"
	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
	uimiddleware "github.com/Harinie05/HRM-sub002/internal/ui/middleware"
	"github.com/Harinie05/HRM-sub002/internal/ui/static"
)

// maxRequestBody ограничивает тело запроса (включая загрузку документов).
const maxRequestBody = 25 << 20

// Components — обработчики и middleware консоли.
type Components struct {
	Catalog *resource.Catalog
	Health  *handlers.HealthHandler

	Sessions *uimiddleware.Sessions
	Auth     *uimiddleware.UIAuth
	CSRF     *uimiddleware.CSRF
	Guard    *uimiddleware.Guard

	Login        *uihandlers.AuthHandler
	Dashboard    *uihandlers.DashboardHandler
	Resources    *uihandlers.ResourceHandler
	Reporting    *uihandlers.ReportingHandler
	Onboarding   *uihandlers.OnboardingHandler
	Organization *uihandlers.OrganizationHandler
	Events       *uihandlers.EventsHandler
}

// Server — HTTP-сервер HRM Console.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, c *Components) *Server {
	// Контекст запросов отменяется при shutdown, чтобы SSE-потоки завершились.
	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     NewRouter(cfg, logger, c),
		BaseContext: func(net.Listener) context.Context { return baseCtx },
		ReadTimeout: 30 * time.Second,
		// WriteTimeout не задан: SSE-потоки живут до закрытия страницы.
		IdleTimeout: 120 * time.Second,
	}
	srv.RegisterOnShutdown(cancel)

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты консоли.
func NewRouter(cfg *config.Config, logger *slog.Logger, c *Components) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(chimw.RealIP)
	router.Use(chimw.RequestID)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(chimw.RequestSize(maxRequestBody))
	router.Use(secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.Production,
	}).Handler)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.NotFound(w, "маршрут не найден")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.MethodNotAllowed(w, "метод не поддерживается")
	})

	// Служебные endpoints без сессии.
	router.Get("/health/live", c.Health.HealthLive)
	router.Get("/health/ready", c.Health.HealthReady)
	router.Get("/metrics", c.Health.GetMetrics)
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware())
		r.Use(c.Sessions.Middleware())
		r.Use(c.CSRF.Middleware())

		r.Post("/set-language", uihandlers.HandleSetLanguage)
		r.Get("/login", c.Login.HandleLoginPage)
		r.With(httprate.Limit(cfg.LoginRateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				apierrors.TooManyRequests(w, "слишком много попыток входа")
			}),
		)).Post("/login", c.Login.HandleLogin)
		r.Post("/logout", c.Login.HandleLogout)

		// Страницы после входа.
		r.Group(func(r chi.Router) {
			r.Use(c.Auth.Middleware())

			orgPerms := c.Catalog.Organization.Permissions
			users, _ := c.Catalog.Get("users")
			onboarding, _ := c.Catalog.Get("onboarding")

			r.Get("/", c.Dashboard.HandleDashboard)

			r.Route("/r/{resource}", func(r chi.Router) {
				r.Use(c.Guard.RequireFunc(uihandlers.ViewCapability(c.Catalog)))
				r.Get("/", c.Resources.HandleList)
				r.Get("/table", c.Resources.HandleTable)
				r.Get("/export.pdf", c.Resources.HandleExport)
				r.Post("/create", c.Resources.HandleCreate)
				r.Post("/{id}/update", c.Resources.HandleUpdate)
				r.Post("/{id}/delete", c.Resources.HandleDelete)
				r.Post("/{id}/toggle", c.Resources.HandleToggle)
			})

			r.With(c.Guard.Require(users.Permissions.View)).
				Get("/reporting-structure", c.Reporting.HandleReporting)

			r.Route("/onboarding/{id}", func(r chi.Router) {
				r.Use(c.Guard.Require(onboarding.Permissions.View))
				r.Get("/", c.Onboarding.HandleOnboarding)
				r.Post("/steps/{step}", c.Onboarding.HandleStep)
			})

			r.Route("/organization", func(r chi.Router) {
				r.Use(c.Guard.Require(orgPerms.View))
				r.Get("/", c.Organization.HandleProfile)
				r.Post("/", c.Organization.HandleUpdate)
			})

			r.Get("/ui/sidebar/org", c.Organization.HandleSidebarOrg)
			r.Post("/ui/sidebar/scroll", c.Organization.HandleScroll)

			r.Get("/events/clock", c.Events.HandleClock)
			r.Get("/events/org", c.Events.HandleOrganization)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
