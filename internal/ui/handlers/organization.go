package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Harinie05/HRM-sub002/internal/service"
	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
	"github.com/Harinie05/HRM-sub002/internal/ui/pages"
)

// OrganizationHandler — профиль организации и блок организации в меню.
type OrganizationHandler struct {
	*Console
	secureCookie bool
	logger       *slog.Logger
}

// NewOrganizationHandler создаёт обработчик профиля организации.
func NewOrganizationHandler(console *Console, secureCookie bool, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		Console:      console,
		secureCookie: secureCookie,
		logger:       logger.With(slog.String("component", "ui.organization")),
	}
}

// HandleProfile обрабатывает GET /organization.
func (h *OrganizationHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	sess, sc := scope(r)
	ctx := r.Context()
	title := i18n.T(ctx, "org.title")

	org, err := h.org.Resolve(ctx, sc, sess)
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.logger.Error("Ошибка загрузки профиля организации",
			slog.String("error", err.Error()),
		)
		h.render(w, r, http.StatusOK, title, pages.Alert("error", alertMessage(r, err)))
		return
	}

	h.render(w, r, http.StatusOK, title, pages.OrganizationProfile(pages.OrganizationView{
		Name:    org.Name,
		Tagline: org.Tagline,
		CanEdit: sc.Can(h.catalog.Organization.Permissions.Edit),
		CSRF:    h.csrf.EnsureToken(sess),
	}))
}

// HandleUpdate обрабатывает POST /organization.
func (h *OrganizationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	sess, sc := scope(r)
	ctx := r.Context()
	org := service.Organization{Name: r.FormValue("name"), Tagline: r.FormValue("tagline")}

	err := h.org.Update(ctx, sc, sess, org)
	switch {
	case err == nil:
		sess.AddFlash(auth.FlashSuccess, i18n.T(ctx, "org.saved"))
	case h.expired(w, r, err):
		return
	case errors.Is(err, service.ErrValidation):
		var verr *service.ValidationError
		errors.As(err, &verr)
		view := pages.OrganizationView{
			Name:    org.Name,
			Tagline: org.Tagline,
			CanEdit: true,
			CSRF:    h.csrf.EnsureToken(sess),
		}
		if verr != nil {
			view.Errors = verr.Fields
		}
		h.render(w, r, http.StatusUnprocessableEntity, i18n.T(ctx, "org.title"), pages.OrganizationProfile(view))
		return
	default:
		h.logger.Error("Профиль организации не сохранён",
			slog.String("error", err.Error()),
		)
		sess.AddFlash(auth.FlashError, alertMessage(r, err))
	}
	http.Redirect(w, r, "/organization", http.StatusSeeOther)
}

// HandleSidebarOrg обрабатывает GET /ui/sidebar/org — фрагмент блока
// организации. refresh=1 сбрасывает кэш сессии и загружает профиль заново.
func (h *OrganizationHandler) HandleSidebarOrg(w http.ResponseWriter, r *http.Request) {
	sess, sc := scope(r)
	if r.URL.Query().Get("refresh") == "1" {
		h.org.Invalidate(sess)
	}
	block := h.orgBlock(r, sess, sc)
	w.Header().Set("Cache-Control", "no-store")
	h.renderPartial(w, r, pages.OrgBlock(block))
}

// HandleScroll обрабатывает POST /ui/sidebar/scroll — сохраняет смещение
// прокрутки меню до конца сессии браузера.
func (h *OrganizationHandler) HandleScroll(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(r.FormValue("offset"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	auth.WriteScroll(w, offset, h.secureCookie)
	w.WriteHeader(http.StatusNoContent)
}
