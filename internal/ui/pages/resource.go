package pages

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/resource"
)

// ResourceView — данные экрана ресурса.
type ResourceView struct {
	Resource *resource.Resource
	Records  []model.Record
	Query    string
	CSRF     string

	CanAdd    bool
	CanEdit   bool
	CanDelete bool

	// LoadError — сообщение, если список не удалось загрузить.
	LoadError string
	Modal     *FormModal
}

// FormModal — модальное окно создания или редактирования записи.
type FormModal struct {
	Title  string
	Action string
	Values url.Values
	Errors map[string]string
	Error  string
}

func (v ResourceView) base() string {
	return v.Resource.Route()
}

func (v ResourceView) hasActions() bool {
	return v.CanEdit || v.CanDelete || v.Resource.Workflow != ""
}

// ResourceList — экран списка: панель поиска, таблица и модальная форма.
func ResourceList(v ResourceView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		res := v.Resource

		h.raw(`<div class="toolbar"><form method="get" class="search"`)
		h.attr("action", v.base())
		h.raw(`><input type="search" name="q" autocomplete="off"`)
		h.attr("value", v.Query)
		h.attr("placeholder", h.tr("resource.search"))
		h.attr("data-search", v.base()+"/table")
		h.raw(`></form>`)

		if v.CanAdd {
			h.raw(`<a class="btn btn-primary btn-add"`)
			h.attr("href", v.base()+"?modal=create")
			h.raw(`>`)
			h.text(h.tr("resource.add") + " " + res.Singular)
			h.raw(`</a>`)
		}
		if res.Export {
			h.raw(`<a class="btn btn-export"`)
			h.attr("href", v.base()+"/export.pdf")
			h.raw(`>`)
			h.t("resource.export")
			h.raw(`</a>`)
		}
		h.raw(`</div>`)

		if v.LoadError != "" {
			h.render(Alert("error", v.LoadError))
		}
		h.render(ResourceTable(v))
		if v.Modal != nil {
			h.render(resourceModal(v))
		}
		return h.err
	})
}

// ResourceTable — таблица записей. Элементы управления выводятся только
// при наличии соответствующих прав.
func ResourceTable(v ResourceView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		res := v.Resource

		h.raw(`<div id="records" class="table-wrap"><table class="records"><thead><tr>`)
		for _, c := range res.Columns {
			h.raw(`<th>`)
			h.text(c.Label)
			h.raw(`</th>`)
		}
		if v.hasActions() {
			h.raw(`<th class="actions">`)
			h.t("resource.actions")
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)

		if len(v.Records) == 0 {
			cols := len(res.Columns)
			if v.hasActions() {
				cols++
			}
			h.raw(`<tr class="empty"><td`)
			h.attr("colspan", itoa(cols))
			h.raw(`>`)
			h.t("resource.empty")
			h.raw(`</td></tr>`)
		}

		for _, rec := range v.Records {
			h.raw(`<tr`)
			h.attr("data-id", rec.ID())
			h.raw(`>`)
			for _, c := range res.Columns {
				h.raw(`<td>`)
				if res.Toggle != nil && c.Field == res.Toggle.Field {
					h.render(toggleCell(v, rec))
				} else {
					h.text(rec.Text(c.Field))
				}
				h.raw(`</td>`)
			}
			if v.hasActions() {
				h.raw(`<td class="actions">`)
				h.render(rowActions(v, rec))
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></div>`)
		return h.err
	})
}

func toggleCell(v ResourceView, rec model.Record) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		field := v.Resource.Toggle.Field
		on := rec.Bool(field)
		if !v.CanEdit {
			h.text(rec.Text(field))
			return h.err
		}
		h.raw(`<form method="post" class="inline"`)
		h.attr("action", v.base()+"/"+url.PathEscape(rec.ID())+"/toggle")
		h.raw(`>`)
		h.csrf(v.CSRF)
		h.raw(`<input type="hidden" name="value"`)
		h.attr("value", strconv.FormatBool(!on))
		h.raw(`><button type="submit" class="toggle`)
		if on {
			h.raw(` on`)
		}
		h.raw(`"`)
		h.attr("aria-pressed", strconv.FormatBool(on))
		h.raw(`>`)
		h.text(rec.Text(field))
		h.raw(`</button></form>`)
		return h.err
	})
}

func rowActions(v ResourceView, rec model.Record) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		id := url.PathEscape(rec.ID())
		if v.Resource.Workflow == "onboarding" {
			h.raw(`<a class="btn btn-steps"`)
			h.attr("href", "/onboarding/"+id)
			h.raw(`>`)
			h.t("onboarding.open")
			h.raw(`</a>`)
		}
		if v.CanEdit {
			h.raw(`<a class="btn btn-edit"`)
			h.attr("href", v.base()+"?modal=edit&id="+url.QueryEscape(rec.ID()))
			h.raw(`>`)
			h.t("resource.edit")
			h.raw(`</a>`)
		}
		if v.CanDelete {
			confirm := h.tr("resource.confirm_delete") + " " + rec.Text(v.Resource.Display) + "?"
			h.postButton(v.base()+"/"+id+"/delete", v.CSRF, "btn btn-danger btn-delete", h.tr("resource.delete"), confirm)
		}
		return h.err
	})
}

func resourceModal(v ResourceView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		m := v.Modal
		h.raw(`<div class="modal-backdrop"><div class="modal" role="dialog" aria-modal="true"><h2>`)
		h.text(m.Title)
		h.raw(`</h2>`)
		if m.Error != "" {
			h.render(Alert("error", m.Error))
		}
		h.raw(`<form method="post" class="form"`)
		h.attr("action", m.Action)
		h.raw(`>`)
		h.csrf(v.CSRF)
		for _, f := range v.Resource.Fields {
			h.render(formField(f, m.Values.Get(f.Name), m.Errors[f.Name]))
		}
		h.raw(`<div class="form-actions"><a class="btn"`)
		h.attr("href", v.base())
		h.raw(`>`)
		h.t("form.cancel")
		h.raw(`</a><button type="submit" class="btn btn-primary">`)
		h.t("form.save")
		h.raw(`</button></div></form></div></div>`)
		return h.err
	})
}

func formField(f resource.Field, value, fieldErr string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		id := "f-" + f.Name
		h.raw(`<div class="field`)
		if fieldErr != "" {
			h.raw(` has-error`)
		}
		h.raw(`"><label`)
		h.attr("for", id)
		h.raw(`>`)
		h.text(f.Label)
		if f.Required {
			h.raw(` <span class="req">*</span>`)
		}
		h.raw(`</label>`)

		switch f.Type {
		case resource.FieldTextarea, resource.FieldList:
			h.raw(`<textarea`)
			h.attr("id", id)
			h.attr("name", f.Name)
			if f.Required {
				h.raw(` required`)
			}
			h.raw(`>`)
			h.text(value)
			h.raw(`</textarea>`)
			if f.Type == resource.FieldList {
				h.raw(`<small class="hint">`)
				h.t("form.list_hint")
				h.raw(`</small>`)
			}
		case resource.FieldSelect:
			h.raw(`<select`)
			h.attr("id", id)
			h.attr("name", f.Name)
			if f.Required {
				h.raw(` required`)
			}
			h.raw(`><option value=""></option>`)
			for _, opt := range f.Options {
				h.raw(`<option`)
				h.attr("value", opt)
				if opt == value {
					h.raw(` selected`)
				}
				h.raw(`>`)
				h.text(opt)
				h.raw(`</option>`)
			}
			h.raw(`</select>`)
		default:
			typ := f.Type
			if typ == "" {
				typ = resource.FieldText
			}
			h.raw(`<input`)
			h.attr("type", typ)
			h.attr("id", id)
			h.attr("name", f.Name)
			h.attr("value", value)
			if f.Required {
				h.raw(` required`)
			}
			h.raw(`>`)
		}
		if fieldErr != "" {
			h.raw(`<small class="field-error">`)
			h.text(fieldErr)
			h.raw(`</small>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}
