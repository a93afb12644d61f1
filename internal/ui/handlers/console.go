// Пакет handlers — HTTP-обработчики HRM Console.
// console.go — общая часть обработчиков: сессия, каркас страницы, уведомления.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/Harinie05/HRM-sub002/internal/backend"
	"github.com/Harinie05/HRM-sub002/internal/domain/rbac"
	"github.com/Harinie05/HRM-sub002/internal/resource"
	"github.com/Harinie05/HRM-sub002/internal/service"
	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
	uimiddleware "github.com/Harinie05/HRM-sub002/internal/ui/middleware"
	"github.com/Harinie05/HRM-sub002/internal/ui/pages"
)

// Console — зависимости, общие для обработчиков страниц.
type Console struct {
	catalog *resource.Catalog
	org     *service.OrganizationService
	csrf    *auth.CSRFManager
	logger  *slog.Logger
}

// NewConsole создаёт общую часть обработчиков.
func NewConsole(catalog *resource.Catalog, org *service.OrganizationService, csrf *auth.CSRFManager, logger *slog.Logger) *Console {
	return &Console{
		catalog: catalog,
		org:     org,
		csrf:    csrf,
		logger:  logger.With(slog.String("component", "ui.console")),
	}
}

// scope возвращает сессию запроса и контекст пользователя для сервисов.
func scope(r *http.Request) (*auth.Session, service.Scope) {
	sess := uimiddleware.SessionFromContext(r.Context())
	if sess == nil {
		sess = auth.NewSession()
	}
	return sess, service.Scope{
		SessionID: sess.ID,
		Creds:     sess.Credentials(),
		Perms:     sess,
	}
}

// shell собирает данные каркаса. resolveOrg=false использует только
// кэш сессии и не обращается к backend.
func (c *Console) shell(r *http.Request, title string, resolveOrg bool) pages.Shell {
	ctx := r.Context()
	sess, sc := scope(r)

	s := pages.Shell{
		Title: title,
		Lang:  i18n.LangFromContext(ctx),
		User: pages.User{
			Name:  sess.Get(auth.KeyUserName),
			Role:  sess.Get(auth.KeyRoleName),
			Email: sess.Get(auth.KeyEmail),
		},
		Scroll: auth.ReadScroll(r),
		CSRF:   c.csrf.EnsureToken(sess),
		Clock:  time.Now().Format(clockLayout),
	}

	if resolveOrg {
		s.Org = c.orgBlock(r, sess, sc)
	} else if name := sess.Get(auth.KeyOrganizationName); name != "" {
		s.Org = pages.Org{Name: name, Tagline: sess.Get(auth.KeyOrganizationTagline), Initials: service.Initials(name)}
	}

	s.Sections = c.navigation(sess, r.URL.Path)

	for _, f := range sess.PopFlashes() {
		s.Flashes = append(s.Flashes, pages.Flash{Kind: f.Kind, Message: f.Message})
	}
	return s
}

// orgBlock разрешает организацию из кэша сессии или backend.
func (c *Console) orgBlock(r *http.Request, sess *auth.Session, sc service.Scope) pages.Org {
	org, err := c.org.Resolve(r.Context(), sc, sess)
	if err != nil {
		c.logger.Warn("Профиль организации недоступен",
			slog.String("tenant", sc.Creds.Tenant),
			slog.String("error", err.Error()),
		)
		return pages.Org{Unavailable: true}
	}
	return pages.Org{Name: org.Name, Tagline: org.Tagline, Initials: org.Initials()}
}

// navigation строит разделы меню: только доступные пункты, раздел
// с текущей страницей раскрыт.
func (c *Console) navigation(sess *auth.Session, path string) []pages.NavSection {
	sections := make([]pages.NavSection, 0, len(c.catalog.Sections))
	for _, sec := range c.catalog.Sections {
		ns := pages.NavSection{Key: sec.Key, Title: sec.Title, Open: sec.Contains(path)}
		for _, it := range sec.Items {
			if cp := c.navCapability(it.Key); cp != "" && !rbac.HasPermission(sess, cp) {
				continue
			}
			ns.Items = append(ns.Items, pages.NavItem{
				Label:  it.Label,
				Route:  it.Route,
				Active: resource.MatchRoute(it.Route, path),
			})
		}
		if len(ns.Items) > 0 {
			sections = append(sections, ns)
		}
	}
	return sections
}

// navCapability — право просмотра пункта меню; "" — пункт доступен всем.
func (c *Console) navCapability(key string) string {
	switch key {
	case "dashboard":
		return ""
	case "organization":
		return c.catalog.Organization.Permissions.View
	case "reporting":
		key = "users"
	}
	if res, ok := c.catalog.Get(key); ok {
		return res.Permissions.View
	}
	return key
}

// render отдаёт страницу в каркасе.
func (c *Console) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	c.renderShell(w, r, status, c.shell(r, title, true), body)
}

func (c *Console) renderShell(w http.ResponseWriter, r *http.Request, status int, s pages.Shell, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Page(s, body).Render(r.Context(), w); err != nil {
		c.logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// renderPartial отдаёт фрагмент страницы без каркаса.
func (c *Console) renderPartial(w http.ResponseWriter, r *http.Request, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := body.Render(r.Context(), w); err != nil {
		c.logger.Error("Ошибка рендеринга фрагмента",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// Deny отображает уведомление об отсутствии доступа (403) без обращений к backend.
func (c *Console) Deny(w http.ResponseWriter, r *http.Request, _ string) {
	c.renderShell(w, r, http.StatusForbidden, c.shell(r, i18n.T(r.Context(), "blocked.title"), false), pages.Blocked())
}

// expired обрабатывает отказ backend в токене: сессия очищается,
// пользователь отправляется на вход. Возвращает false для прочих ошибок.
func (c *Console) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	sess, _ := scope(r)
	c.logger.Info("Backend отклонил токен, сессия очищена",
		slog.String("email", sess.Get(auth.KeyEmail)),
	)
	sess.Clear()
	if uimiddleware.IsBackground(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return true
	}
	http.Redirect(w, r, uimiddleware.LoginPath+"?expired=1", http.StatusSeeOther)
	return true
}

// alertMessage — пользовательское сообщение об ошибке без подробностей backend.
func alertMessage(r *http.Request, err error) string {
	ctx := r.Context()
	switch {
	case errors.Is(err, service.ErrForbidden), errors.Is(err, backend.ErrForbidden):
		return i18n.T(ctx, "alert.forbidden")
	case errors.Is(err, service.ErrValidation):
		return i18n.T(ctx, "alert.validation")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, backend.ErrNotFound):
		return i18n.T(ctx, "alert.not_found")
	case errors.Is(err, service.ErrStepUnavailable):
		return i18n.T(ctx, "alert.step_unavailable")
	case errors.Is(err, backend.ErrConflict):
		return i18n.T(ctx, "alert.conflict")
	default:
		return i18n.T(ctx, "alert.failed")
	}
}

const clockLayout = "15:04:05"
