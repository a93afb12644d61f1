// session.go — загрузка сессии и её фиксация до отправки заголовков ответа.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
)

// contextKey — тип ключей контекста UI.
type contextKey string

const contextKeySession contextKey = "ui_session"

// Sessions загружает сессию запроса из хранилища и помещает её в контекст.
// Изменения сессии фиксируются перед первой записью заголовков ответа.
type Sessions struct {
	store  auth.Store
	logger *slog.Logger
}

// NewSessions создаёт middleware сессий.
func NewSessions(store auth.Store, logger *slog.Logger) *Sessions {
	return &Sessions{
		store:  store,
		logger: logger.With(slog.String("component", "ui_sessions")),
	}
}

// Middleware возвращает HTTP middleware.
func (s *Sessions) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := s.store.Load(r.Context(), r)
			if err != nil {
				if !errors.Is(err, auth.ErrSessionCorrupt) || sess == nil {
					s.logger.Error("Ошибка загрузки сессии",
						slog.String("error", err.Error()),
					)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				s.logger.Debug("Повреждённая сессия заменена новой",
					slog.String("remote_addr", r.RemoteAddr),
				)
			}

			cw := &committingWriter{ResponseWriter: w, commit: func(w http.ResponseWriter) {
				if err := s.store.Commit(r.Context(), w, sess); err != nil {
					s.logger.Error("Ошибка сохранения сессии",
						slog.String("session_id", sess.ID),
						slog.String("error", err.Error()),
					)
				}
			}}
			next.ServeHTTP(cw, r.WithContext(WithSession(r.Context(), sess)))
			cw.flushCommit()
		})
	}
}

// WithSession возвращает контекст с сессией.
func WithSession(ctx context.Context, sess *auth.Session) context.Context {
	return context.WithValue(ctx, contextKeySession, sess)
}

// SessionFromContext возвращает сессию запроса. nil, если запрос
// не прошёл через Sessions.
func SessionFromContext(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(contextKeySession).(*auth.Session)
	return sess
}

// committingWriter фиксирует сессию один раз перед записью заголовков.
type committingWriter struct {
	http.ResponseWriter
	commit    func(http.ResponseWriter)
	committed bool
}

func (cw *committingWriter) flushCommit() {
	if !cw.committed {
		cw.committed = true
		cw.commit(cw.ResponseWriter)
	}
}

func (cw *committingWriter) WriteHeader(code int) {
	cw.flushCommit()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *committingWriter) Write(b []byte) (int, error) {
	cw.flushCommit()
	return cw.ResponseWriter.Write(b)
}

// FlushError фиксирует сессию и сбрасывает буфер ответа (SSE).
func (cw *committingWriter) FlushError() error {
	cw.flushCommit()
	return http.NewResponseController(cw.ResponseWriter).Flush()
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (cw *committingWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
