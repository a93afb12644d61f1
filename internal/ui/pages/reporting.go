package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Harinie05/HRM-sub002/internal/service"
)

// Reporting — структура подчинённости по уровням.
func Reporting(levels []service.ReportingLevel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<div class="levels">`)
		for _, l := range levels {
			h.raw(`<section class="level"`)
			h.attr("data-level", l.Name)
			h.raw(`><h2>`)
			h.text(l.Name)
			h.raw(` <span class="count">`)
			h.text(itoa(len(l.Members)))
			h.raw(`</span></h2>`)
			if len(l.Members) == 0 {
				h.raw(`<p class="muted">`)
				h.t("reporting.empty_level")
				h.raw(`</p></section>`)
				continue
			}
			h.raw(`<ul class="members">`)
			for _, m := range l.Members {
				h.raw(`<li class="member"><strong>`)
				h.text(m.Name)
				h.raw(`</strong>`)
				if m.RoleName != "" {
					h.raw(` <span class="role">`)
					h.text(m.RoleName)
					h.raw(`</span>`)
				}
				if m.Department != "" {
					h.raw(` <span class="department">`)
					h.text(m.Department)
					h.raw(`</span>`)
				}
				if m.Supervisor != "" {
					h.raw(` <span class="badge`)
					if m.SupervisorMissing {
						h.raw(` badge-warning`)
					}
					h.raw(`">`)
					h.text(h.tr("reporting.reports_to") + " " + m.Supervisor)
					h.raw(`</span>`)
				}
				h.raw(`<small class="email">`)
				h.text(m.Email)
				h.raw(`</small></li>`)
			}
			h.raw(`</ul></section>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}
