package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// OrganizationView — данные страницы профиля организации.
type OrganizationView struct {
	Name    string
	Tagline string
	CanEdit bool
	CSRF    string
	Errors  map[string]string
}

// OrganizationProfile — просмотр и изменение профиля организации.
func OrganizationProfile(v OrganizationView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		if !v.CanEdit {
			h.raw(`<dl class="summary"><dt>`)
			h.t("org.name")
			h.raw(`</dt><dd>`)
			h.text(v.Name)
			h.raw(`</dd><dt>`)
			h.t("org.tagline")
			h.raw(`</dt><dd>`)
			h.text(v.Tagline)
			h.raw(`</dd></dl>`)
			return h.err
		}

		h.raw(`<form method="post" action="/organization" class="form">`)
		h.csrf(v.CSRF)
		h.raw(`<div class="field`)
		if v.Errors["name"] != "" {
			h.raw(` has-error`)
		}
		h.raw(`"><label for="org-name">`)
		h.t("org.name")
		h.raw(` <span class="req">*</span></label><input type="text" id="org-name" name="name" required maxlength="200"`)
		h.attr("value", v.Name)
		h.raw(`>`)
		if msg := v.Errors["name"]; msg != "" {
			h.raw(`<small class="field-error">`)
			h.text(msg)
			h.raw(`</small>`)
		}
		h.raw(`</div><div class="field"><label for="org-tagline">`)
		h.t("org.tagline")
		h.raw(`</label><input type="text" id="org-tagline" name="tagline"`)
		h.attr("value", v.Tagline)
		h.raw(`></div><div class="form-actions"><button type="submit" class="btn btn-primary">`)
		h.t("form.save")
		h.raw(`</button></div></form>`)
		return h.err
	})
}
