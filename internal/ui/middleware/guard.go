// guard.go — единая проверка права доступа к странице.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Harinie05/HRM-sub002/internal/domain/rbac"
)

var guardDenials = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hrm_console_guard_denials_total",
		Help: "Количество отказов в доступе к страницам HRM Console",
	},
	[]string{"capability"},
)

// DenyFunc отвечает на запрос без права capability.
type DenyFunc func(w http.ResponseWriter, r *http.Request, capability string)

// Guard пропускает запрос к обработчику только при наличии права.
// Без права обработчик не вызывается и запросы к backend не выполняются.
type Guard struct {
	deny   DenyFunc
	logger *slog.Logger
}

// NewGuard создаёт guard. deny отображает сообщение об отказе.
func NewGuard(deny DenyFunc, logger *slog.Logger) *Guard {
	return &Guard{
		deny:   deny,
		logger: logger.With(slog.String("component", "guard")),
	}
}

// Require проверяет фиксированное право.
func (g *Guard) Require(capability string) func(http.Handler) http.Handler {
	return g.RequireFunc(func(*http.Request) string { return capability })
}

// RequireFunc проверяет право, вычисляемое по запросу (например, по ресурсу из URL).
func (g *Guard) RequireFunc(capabilityOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capability := capabilityOf(r)
			sess := SessionFromContext(r.Context())
			var reader rbac.Reader
			if sess != nil {
				reader = sess
			}
			if !rbac.HasPermission(reader, capability) {
				g.logger.Debug("Доступ к странице запрещён",
					slog.String("path", r.URL.Path),
					slog.String("capability", capability),
				)
				guardDenials.WithLabelValues(capability).Inc()
				g.deny(w, r, capability)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
