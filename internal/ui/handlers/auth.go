// auth.go — вход по email и паролю через backend и выход.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Harinie05/HRM-sub002/internal/backend"
	"github.com/Harinie05/HRM-sub002/internal/domain/rbac"
	"github.com/Harinie05/HRM-sub002/internal/service"
	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
	"github.com/Harinie05/HRM-sub002/internal/ui/pages"
)

// Authenticator выполняет вход в backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
}

// loginForm — поля формы входа.
type loginForm struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=256"`
}

// AuthHandler — обработчики входа и выхода.
type AuthHandler struct {
	authenticator Authenticator
	store         auth.Store
	data          *service.DataLayer
	csrf          *auth.CSRFManager
	validate      *validator.Validate
	logger        *slog.Logger
}

// NewAuthHandler создаёт новый AuthHandler.
func NewAuthHandler(authenticator Authenticator, store auth.Store, data *service.DataLayer, csrf *auth.CSRFManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		store:         store,
		data:          data,
		csrf:          csrf,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger.With(slog.String("component", "ui_auth")),
	}
}

// HandleLoginPage — GET /login. Вошедший пользователь перенаправляется на сводку.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess, _ := scope(r)
	if sess.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	v := pages.LoginView{CSRF: h.csrf.EnsureToken(sess), Lang: i18n.LangFromContext(r.Context())}
	if r.URL.Query().Get("expired") == "1" {
		v.Error = i18n.T(r.Context(), "login.expired")
	}
	h.renderLogin(w, r, http.StatusOK, v)
}

// HandleLogin — POST /login. Записывает данные пользователя в сессию.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	sess, _ := scope(r)
	ctx := r.Context()
	form := loginForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	v := pages.LoginView{Email: form.Email, CSRF: h.csrf.EnsureToken(sess), Lang: i18n.LangFromContext(ctx)}

	if err := h.validate.Struct(form); err != nil {
		v.Error = i18n.T(ctx, "login.invalid_form")
		h.renderLogin(w, r, http.StatusUnprocessableEntity, v)
		return
	}

	result, err := h.authenticator.Login(ctx, form.Email, form.Password)
	if err != nil {
		status := http.StatusUnauthorized
		v.Error = i18n.T(ctx, "login.failed")
		if !errors.Is(err, backend.ErrUnauthorized) && !errors.Is(err, backend.ErrForbidden) {
			status = http.StatusBadGateway
			v.Error = i18n.T(ctx, "login.unavailable")
		}
		h.logger.Info("Вход не выполнен",
			slog.String("email", form.Email),
			slog.String("error", err.Error()),
		)
		h.renderLogin(w, r, status, v)
		return
	}

	values := map[string]string{
		auth.KeyAccessToken: result.AccessToken,
		auth.KeyTenant:      result.TenantDB,
		auth.KeyLoginType:   result.LoginType,
		auth.KeyIsAdmin:     strconv.FormatBool(result.User.IsAdmin),
		auth.KeyPermissions: rbac.EncodePermissions(result.User.Permissions),
		auth.KeyUserName:    result.User.Name,
		auth.KeyRoleName:    result.User.RoleName,
		auth.KeyEmail:       firstNonEmpty(result.User.Email, form.Email),
	}
	sess.Regenerate()
	sess.Delete(auth.KeyOrganizationName)
	sess.Delete(auth.KeyOrganizationTagline)
	sess.SetAll(values)

	if err := h.store.Check(sess); err != nil {
		for key := range values {
			sess.Delete(key)
		}
		h.logger.Error("Сессия не может быть сохранена",
			slog.String("email", form.Email),
			slog.Int("permissions", len(result.User.Permissions)),
			slog.String("error", err.Error()),
		)
		v.CSRF = h.csrf.EnsureToken(sess)
		v.Error = i18n.T(ctx, "login.session_too_large")
		h.renderLogin(w, r, http.StatusInternalServerError, v)
		return
	}

	h.logger.Info("Пользователь вошёл",
		slog.String("email", form.Email),
		slog.String("tenant", result.TenantDB),
		slog.Bool("admin", rbac.IsAdmin(sess)),
	)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout — POST /logout. Очищает всю сессию и её view state.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := scope(r)
	if err := h.data.Forget(r.Context(), sess.ID); err != nil {
		h.logger.Warn("Не удалось удалить view state сессии",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
	h.logger.Info("Пользователь вышел",
		slog.String("email", sess.Get(auth.KeyEmail)),
	)
	sess.Clear()
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, v pages.LoginView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Login(v).Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга страницы входа",
			slog.String("error", err.Error()),
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
