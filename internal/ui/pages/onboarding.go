package pages

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/service"
)

// DocumentKinds — типы документов шага загрузки.
var DocumentKinds = []string{"ID Proof", "Educational Certificate", "Experience Letter", "Medical Registration", "Other"}

// OnboardingView — данные страницы оформления кандидата.
type OnboardingView struct {
	Record  model.Record
	Steps   []service.StepState
	CanEdit bool
	CSRF    string
}

// Onboarding — карточка кандидата и шаги оформления.
func Onboarding(v OnboardingView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		id := url.PathEscape(v.Record.ID())

		h.raw(`<div class="onboarding"><dl class="summary">`)
		for _, f := range []string{"candidate_name", "position", "department_name", "joining_date"} {
			if val := v.Record.Text(f); val != "" {
				h.raw(`<dt>`)
				h.t("onboarding.field." + f)
				h.raw(`</dt><dd>`)
				h.text(val)
				h.raw(`</dd>`)
			}
		}
		h.raw(`</dl><ol class="steps">`)

		for _, st := range v.Steps {
			h.raw(`<li`)
			h.attr("data-step", st.Key)
			switch {
			case st.Done:
				h.raw(` class="step done"`)
			case st.Available:
				h.raw(` class="step current"`)
			default:
				h.raw(` class="step pending"`)
			}
			h.raw(`><span class="step-title">`)
			h.text(st.Title)
			h.raw(`</span>`)

			if st.Available && v.CanEdit {
				action := "/onboarding/" + id + "/steps/" + st.Key
				if st.Upload {
					h.raw(`<form method="post" enctype="multipart/form-data" class="upload"`)
					h.attr("action", action)
					h.raw(`>`)
					h.csrf(v.CSRF)
					h.raw(`<select name="document_type">`)
					for _, k := range DocumentKinds {
						h.raw(`<option`)
						h.attr("value", k)
						h.raw(`>`)
						h.text(k)
						h.raw(`</option>`)
					}
					h.raw(`</select><input type="file" name="file" required><button type="submit" class="btn btn-primary">`)
					h.t("onboarding.upload")
					h.raw(`</button></form>`)
				} else {
					h.postButton(action, v.CSRF, "btn btn-primary", h.tr("onboarding.run"), "")
				}
			}
			h.raw(`</li>`)
		}
		h.raw(`</ol>`)
		if _, ok := service.NextStep(v.Record); !ok {
			h.raw(`<p class="done-note">`)
			h.t("onboarding.complete")
			h.raw(`</p>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}
