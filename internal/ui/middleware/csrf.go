package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
)

// CSRF проверяет токен в изменяющих запросах: поле формы csrf_token
// или заголовок X-CSRF-Token.
type CSRF struct {
	manager *auth.CSRFManager
	logger  *slog.Logger
}

// NewCSRF создаёт middleware проверки CSRF.
func NewCSRF(manager *auth.CSRFManager, logger *slog.Logger) *CSRF {
	return &CSRF{
		manager: manager,
		logger:  logger.With(slog.String("component", "csrf")),
	}
}

// Middleware возвращает HTTP middleware. Применяется после Sessions.
func (c *CSRF) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(auth.CSRFHeader)
			if token == "" {
				token = r.FormValue(auth.CSRFFormField)
			}
			if err := c.manager.VerifyToken(SessionFromContext(r.Context()), token); err != nil {
				c.logger.Warn("CSRF-проверка не пройдена",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
