// resource.go — экраны ресурсов каталога: список, поиск, модальная форма,
// мутации и экспорт в PDF.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/resource"
	"github.com/Harinie05/HRM-sub002/internal/service"
	"github.com/Harinie05/HRM-sub002/internal/ui/auth"
	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
	"github.com/Harinie05/HRM-sub002/internal/ui/pages"
)

// keyFreshList — ресурс, список которого обновлён последней мутацией.
const keyFreshList = "fresh_list"

// ResourceHandler — обработчик экранов ресурсов.
type ResourceHandler struct {
	*Console
	data   *service.DataLayer
	logger *slog.Logger
}

// NewResourceHandler создаёт обработчик экранов ресурсов.
func NewResourceHandler(console *Console, data *service.DataLayer, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		Console: console,
		data:    data,
		logger:  logger.With(slog.String("component", "ui.resource")),
	}
}

// ViewCapability возвращает право просмотра ресурса из URL для Guard.
// Неизвестный ресурс требует права, которого нет ни у кого, кроме администратора;
// обработчик затем отвечает 404.
func ViewCapability(catalog *resource.Catalog) func(*http.Request) string {
	return func(r *http.Request) string {
		if res, ok := catalog.Get(chi.URLParam(r, "resource")); ok {
			return res.Permissions.View
		}
		return "view_" + chi.URLParam(r, "resource")
	}
}

func (h *ResourceHandler) resource(w http.ResponseWriter, r *http.Request) (*resource.Resource, bool) {
	res, ok := h.catalog.Get(chi.URLParam(r, "resource"))
	if !ok || res.Hidden {
		http.NotFound(w, r)
		return nil, false
	}
	return res, true
}

func (h *ResourceHandler) view(r *http.Request, res *resource.Resource, sc service.Scope) pages.ResourceView {
	sess, _ := scope(r)
	return pages.ResourceView{
		Resource:  res,
		Query:     r.URL.Query().Get("q"),
		CSRF:      h.csrf.EnsureToken(sess),
		CanAdd:    sc.Can(res.Permissions.Add),
		CanEdit:   sc.Can(res.Permissions.Edit),
		CanDelete: sc.Can(res.Permissions.Delete),
	}
}

// HandleList — GET /r/{resource}. Загружает список, применяет поиск ?q=
// и открывает модальную форму по ?modal=create или ?modal=edit&id=N.
func (h *ResourceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	sess, sc := scope(r)
	ctx := r.Context()
	v := h.view(r, res, sc)

	records, err := h.listRecords(ctx, sess, sc, res)
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.logger.Error("Ошибка загрузки списка",
			slog.String("resource", res.Key),
			slog.String("error", err.Error()),
		)
		v.LoadError = alertMessage(r, err)
		records, _, _ = h.data.Snapshot(ctx, sc, res)
	}
	v.Records = service.SearchRecords(records, res.Display, v.Query)

	q := r.URL.Query()
	switch q.Get("modal") {
	case "create":
		if v.CanAdd {
			v.Modal = &pages.FormModal{
				Title:  i18n.T(ctx, "resource.new") + " " + res.Singular,
				Action: res.Route() + "/create",
				Values: url.Values{},
			}
		}
	case "edit":
		if v.CanEdit {
			id := q.Get("id")
			rec, err := h.data.Lookup(ctx, sc, res, id)
			if err != nil {
				sess.AddFlash(auth.FlashError, alertMessage(r, err))
				break
			}
			v.Modal = &pages.FormModal{
				Title:  i18n.T(ctx, "resource.edit") + " " + res.Singular,
				Action: res.Route() + "/" + url.PathEscape(id) + "/update",
				Values: service.SeedForm(res, rec),
			}
		}
	}

	h.render(w, r, http.StatusOK, res.Title, pages.ResourceList(v))
}

// HandleTable — GET /r/{resource}/table?q=. Фильтрует список, уже
// находящийся в view state, без обращения к backend.
func (h *ResourceHandler) HandleTable(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	_, sc := scope(r)
	v := h.view(r, res, sc)

	records, _, err := h.data.Snapshot(r.Context(), sc, res)
	if err != nil {
		h.logger.Warn("View state недоступен",
			slog.String("resource", res.Key),
			slog.String("error", err.Error()),
		)
	}
	v.Records = service.SearchRecords(records, res.Display, v.Query)
	h.renderPartial(w, r, pages.ResourceTable(v))
}

// HandleCreate — POST /r/{resource}/create.
func (h *ResourceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	_, sc := scope(r)
	if !sc.Can(res.Permissions.Add) {
		h.blocked(w, r, res)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	body, err := service.BuildPayload(res, r.PostForm)
	if err != nil {
		h.invalid(w, r, res, sc, &pages.FormModal{
			Title:  i18n.T(r.Context(), "resource.new") + " " + res.Singular,
			Action: res.Route() + "/create",
			Values: r.PostForm,
		}, err)
		return
	}

	h.finish(w, r, res, h.data.Mutate(r.Context(), sc, service.NewCreate(res, body)), "flash.created")
}

// HandleUpdate — POST /r/{resource}/{id}/update.
func (h *ResourceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	_, sc := scope(r)
	if !sc.Can(res.Permissions.Edit) {
		h.blocked(w, r, res)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	body, err := service.BuildPayload(res, r.PostForm)
	if err != nil {
		h.invalid(w, r, res, sc, &pages.FormModal{
			Title:  i18n.T(r.Context(), "resource.edit") + " " + res.Singular,
			Action: res.Route() + "/" + url.PathEscape(id) + "/update",
			Values: r.PostForm,
		}, err)
		return
	}

	h.finish(w, r, res, h.data.Mutate(r.Context(), sc, service.NewUpdate(res, id, body)), "flash.updated")
}

// HandleDelete — POST /r/{resource}/{id}/delete.
func (h *ResourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	_, sc := scope(r)
	if !sc.Can(res.Permissions.Delete) {
		h.blocked(w, r, res)
		return
	}
	h.finish(w, r, res, h.data.Mutate(r.Context(), sc, service.NewDelete(res, chi.URLParam(r, "id"))), "flash.deleted")
}

// HandleToggle — POST /r/{resource}/{id}/toggle, value=true|false.
func (h *ResourceHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	_, sc := scope(r)
	if !sc.Can(res.Permissions.Edit) {
		h.blocked(w, r, res)
		return
	}
	value, err := strconv.ParseBool(r.FormValue("value"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	m, err := service.NewToggle(res, chi.URLParam(r, "id"), value)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.finish(w, r, res, h.data.Mutate(r.Context(), sc, m), "flash.updated")
}

// HandleExport — GET /r/{resource}/export.pdf. Выгружает список из view
// state с учётом поиска ?q=.
func (h *ResourceHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	if !res.Export {
		http.NotFound(w, r)
		return
	}
	sess, sc := scope(r)
	ctx := r.Context()

	records, found, err := h.data.Snapshot(ctx, sc, res)
	if err == nil && !found {
		records, err = h.data.Fetch(ctx, sc, res)
	}
	if err != nil {
		if h.expired(w, r, err) {
			return
		}
		h.logger.Error("Ошибка выгрузки списка",
			slog.String("resource", res.Key),
			slog.String("error", err.Error()),
		)
		sess.AddFlash(auth.FlashError, alertMessage(r, err))
		http.Redirect(w, r, res.Route(), http.StatusSeeOther)
		return
	}
	records = service.SearchRecords(records, res.Display, r.URL.Query().Get("q"))

	var buf bytes.Buffer
	if err := service.ExportPDF(&buf, res, records, sess.Get(auth.KeyOrganizationName), time.Now()); err != nil {
		h.logger.Error("Ошибка формирования PDF",
			slog.String("resource", res.Key),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Key+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// blocked отклоняет мутацию без права до обращения к backend.
func (h *ResourceHandler) blocked(w http.ResponseWriter, r *http.Request, res *resource.Resource) {
	sess, _ := scope(r)
	sess.AddFlash(auth.FlashError, i18n.T(r.Context(), "alert.forbidden"))
	http.Redirect(w, r, res.Route(), http.StatusSeeOther)
}

// invalid повторно показывает форму с ошибками проверки полей (422).
func (h *ResourceHandler) invalid(w http.ResponseWriter, r *http.Request, res *resource.Resource, sc service.Scope, modal *pages.FormModal, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		modal.Errors = verr.Fields
	}
	modal.Error = alertMessage(r, err)

	v := h.view(r, res, sc)
	records, _, _ := h.data.Snapshot(r.Context(), sc, res)
	v.Records = records
	v.Modal = modal
	h.render(w, r, http.StatusUnprocessableEntity, res.Title, pages.ResourceList(v))
}

// finish показывает итог мутации и возвращает к списку. Повторная
// загрузка списков уже выполнена слоем данных.
func (h *ResourceHandler) finish(w http.ResponseWriter, r *http.Request, res *resource.Resource, result service.MutationResult, successKey string) {
	if result.Err != nil && h.expired(w, r, result.Err) {
		return
	}
	sess, _ := scope(r)
	if result.Err != nil {
		h.logger.Error("Мутация не выполнена",
			slog.String("resource", res.Key),
			slog.String("error", result.Err.Error()),
		)
		sess.AddFlash(auth.FlashError, alertMessage(r, result.Err))
	} else {
		sess.AddFlash(auth.FlashSuccess, i18n.Tf(r.Context(), successKey, res.Singular))
	}
	for key, err := range result.RefreshErrors {
		h.logger.Warn("Список не обновлён после мутации",
			slog.String("resource", key),
			slog.String("error", err.Error()),
		)
	}
	if _, ok := result.Refreshed[res.Key]; ok {
		sess.Set(keyFreshList, res.Key)
	}
	http.Redirect(w, r, res.Route(), http.StatusSeeOther)
}

// listRecords берёт коллекцию из снимка, если он только что обновлён
// мутацией (одноразовая отметка в сессии), иначе загружает её.
func (h *ResourceHandler) listRecords(ctx context.Context, sess *auth.Session, sc service.Scope, res *resource.Resource) ([]model.Record, error) {
	if sess.Get(keyFreshList) == res.Key {
		sess.Delete(keyFreshList)
		records, ok, err := h.data.Snapshot(ctx, sc, res)
		if err == nil && ok {
			return records, nil
		}
	}
	return h.data.Fetch(ctx, sc, res)
}
