// onboarding.go — пошаговое оформление кандидата.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Harinie05/HRM-sub002/internal/service"
	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
	"github.com/Harinie05/HRM-sub002/internal/ui/pages"
)

// maxUploadSize — объём памяти для разбора multipart-формы документа.
const maxUploadSize = 20 << 20

// OnboardingHandler — обработчик страницы оформления.
type OnboardingHandler struct {
	*Console
	svc    *service.OnboardingService
	logger *slog.Logger
}

// NewOnboardingHandler создаёт обработчик оформления.
func NewOnboardingHandler(console *Console, svc *service.OnboardingService, logger *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		Console: console,
		svc:     svc,
		logger:  logger.With(slog.String("component", "ui.onboarding")),
	}
}

func (h *OnboardingHandler) canEdit(sc service.Scope) bool {
	res, ok := h.catalog.Get("onboarding")
	return ok && sc.Can(res.Permissions.Edit)
}

// HandleOnboarding обрабатывает GET /onboarding/{id}.
func (h *OnboardingHandler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	sess, sc := scope(r)
	ctx := r.Context()
	title := i18n.T(ctx, "onboarding.title")

	rec, err := h.svc.Load(ctx, sc, chi.URLParam(r, "id"))
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		status := http.StatusOK
		if errors.Is(err, service.ErrNotFound) {
			status = http.StatusNotFound
		}
		h.logger.Error("Ошибка загрузки записи оформления",
			slog.String("id", chi.URLParam(r, "id")),
			slog.String("error", err.Error()),
		)
		h.render(w, r, status, title, pages.Alert("error", alertMessage(r, err)))
		return
	}

	h.render(w, r, http.StatusOK, title+": "+rec.Text("candidate_name"), pages.Onboarding(pages.OnboardingView{
		Record:  rec,
		Steps:   service.Steps(rec),
		CanEdit: h.canEdit(sc),
		CSRF:    h.csrf.EnsureToken(sess),
	}))
}

// HandleStep обрабатывает POST /onboarding/{id}/steps/{step}.
// Шаг загрузки принимает multipart-форму с полем file.
func (h *OnboardingHandler) HandleStep(w http.ResponseWriter, r *http.Request) {
	sess, sc := scope(r)
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	stepKey := chi.URLParam(r, "step")
	back := "/onboarding/" + url.PathEscape(id)

	if !h.canEdit(sc) {
		sess.AddFlash(auth.FlashError, i18n.T(ctx, "alert.forbidden"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	var doc *service.Document
	if stepKey == service.OnboardingSteps[0].Key {
		if err := r.ParseMultipartForm(maxUploadSize); err == nil {
			if file, header, err := r.FormFile("file"); err == nil {
				defer file.Close()
				doc = &service.Document{
					Filename: header.Filename,
					Kind:     r.FormValue("document_type"),
					Content:  file,
				}
			}
		}
	}

	_, err := h.svc.Advance(ctx, sc, id, stepKey, doc)
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		sess.AddFlash(auth.FlashError, alertMessage(r, err))
	} else {
		sess.AddFlash(auth.FlashSuccess, i18n.T(ctx, "onboarding.step_done"))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}
