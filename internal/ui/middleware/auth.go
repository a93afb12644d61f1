// Пакет middleware — HTTP middleware HRM Console.
// auth.go — проверка входа и срока действия токена backend.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
)

// LoginPath — страница входа.
const LoginPath = "/login"

// UIAuth пропускает только запросы с выполненным входом. Истёкший или
// нечитаемый токен очищает сессию и отправляет на страницу входа.
type UIAuth struct {
	inspector *auth.TokenInspector
	logger    *slog.Logger
}

// NewUIAuth создаёт middleware проверки входа.
func NewUIAuth(inspector *auth.TokenInspector, logger *slog.Logger) *UIAuth {
	return &UIAuth{
		inspector: inspector,
		logger:    logger.With(slog.String("component", "ui_auth_middleware")),
	}
}

// Middleware возвращает HTTP middleware. Применяется после Sessions.
func (ua *UIAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil || !sess.Authenticated() {
				ua.deny(w, r, "")
				return
			}

			if _, err := ua.inspector.Inspect(r.Context(), sess.Get(auth.KeyAccessToken)); err != nil {
				reason := "invalid"
				if errors.Is(err, auth.ErrTokenExpired) {
					reason = "expired"
				}
				ua.logger.Info("Токен недействителен, сессия очищена",
					slog.String("email", sess.Get(auth.KeyEmail)),
					slog.String("reason", reason),
				)
				sess.Clear()
				ua.deny(w, r, reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// deny отвечает 401 на фоновые запросы страницы и redirect на вход остальным.
func (ua *UIAuth) deny(w http.ResponseWriter, r *http.Request, reason string) {
	if IsBackground(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	target := LoginPath
	if reason == "expired" {
		target += "?expired=1"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// IsBackground сообщает, что запрос выполнен скриптом страницы
// (fetch, EventSource), а не навигацией браузера.
func IsBackground(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "fetch" ||
		r.Header.Get("Accept") == "text/event-stream"
}
