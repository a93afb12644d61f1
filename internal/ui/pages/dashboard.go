package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/Harinie05/HRM-sub002/internal/service"
)

// Dashboard — карточки сводки.
func Dashboard(cards []service.DashboardCard) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		if len(cards) == 0 {
			h.raw(`<p class="muted">`)
			h.t("dashboard.empty")
			h.raw(`</p>`)
			return h.err
		}
		h.raw(`<div class="cards">`)
		for _, c := range cards {
			h.raw(`<div class="card"`)
			h.attr("data-card", c.Key)
			h.raw(`><span class="card-title">`)
			h.text(c.Title)
			h.raw(`</span>`)
			if c.Err != nil {
				h.raw(`<span class="card-value unavailable">`)
				h.t("dashboard.unavailable")
				h.raw(`</span>`)
			} else {
				h.raw(`<span class="card-value">`)
				h.text(itoa(c.Count))
				h.raw(`</span>`)
				if c.Count != c.Total {
					h.raw(`<small class="card-total">`)
					h.text(itoa(c.Total) + " " + h.tr("dashboard.total"))
					h.raw(`</small>`)
				}
			}
			if c.Route != "" {
				h.raw(`<a class="card-link"`)
				h.attr("href", c.Route)
				h.raw(`>`)
				h.t("dashboard.open")
				h.raw(`</a>`)
			}
			h.raw(`</div>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}
