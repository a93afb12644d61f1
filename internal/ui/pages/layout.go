package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// User — данные пользователя в шапке.
type User struct {
	Name  string
	Role  string
	Email string
}

// Org — блок организации в боковой панели.
type Org struct {
	Name     string
	Tagline  string
	Initials string
	// Unavailable — профиль не удалось загрузить.
	Unavailable bool
}

// NavItem — пункт бокового меню.
type NavItem struct {
	Label  string
	Route  string
	Active bool
}

// NavSection — сворачиваемый раздел меню.
type NavSection struct {
	Key   string
	Title string
	Open  bool
	Items []NavItem
}

// Flash — одноразовое уведомление.
type Flash struct {
	Kind    string
	Message string
}

// Shell — данные каркаса страницы.
type Shell struct {
	Title    string
	Lang     string
	User     User
	Org      Org
	Sections []NavSection
	// Scroll — сохранённое смещение прокрутки меню.
	Scroll  int
	CSRF    string
	Flashes []Flash
	Clock   string
}

// Page оборачивает содержимое страницы каркасом: шапка, меню, уведомления.
func Page(s Shell, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		lang := s.Lang
		if lang == "" {
			lang = "en"
		}

		h.raw(`<!DOCTYPE html><html`)
		h.attr("lang", lang)
		h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		h.text(s.Title)
		h.raw(` | HRM Console</title><link rel="stylesheet" href="/static/css/output.css"><script src="/static/js/app.js" defer></script></head>`)
		h.raw(`<body`)
		h.attr("data-csrf", s.CSRF)
		h.raw(`><div class="layout">`)

		h.render(sidebar(s))

		h.raw(`<div class="main">`)
		h.render(header(s))
		h.raw(`<main class="content"><h1 class="page-title">`)
		h.text(s.Title)
		h.raw(`</h1>`)
		for _, f := range s.Flashes {
			h.render(Alert(f.Kind, f.Message))
		}
		h.render(body)
		h.raw(`</main></div></div></body></html>`)
		return h.err
	})
}

func header(s Shell) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<header class="topbar"><div class="user"><span class="user-name">`)
		h.text(s.User.Name)
		h.raw(`</span>`)
		if s.User.Role != "" {
			h.raw(`<span class="user-role">`)
			h.text(s.User.Role)
			h.raw(`</span>`)
		}
		h.raw(`<span class="user-email">`)
		h.text(s.User.Email)
		h.raw(`</span></div>`)

		h.raw(`<time id="clock" class="clock" data-stream="/events/clock">`)
		h.text(s.Clock)
		h.raw(`</time>`)

		h.raw(`<form method="post" action="/set-language" class="lang-switch">`)
		h.csrf(s.CSRF)
		for _, l := range []string{"en", "ru"} {
			h.raw(`<button type="submit" name="lang"`)
			h.attr("value", l)
			if l == s.Lang {
				h.raw(` class="active"`)
			}
			h.raw(`>`)
			h.text(l)
			h.raw(`</button>`)
		}
		h.raw(`</form>`)

		h.postButton("/logout", s.CSRF, "btn btn-logout", h.tr("header.logout"), "")
		h.raw(`</header>`)
		return h.err
	})
}

func sidebar(s Shell) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<aside id="sidebar" class="sidebar"`)
		h.attr("data-scroll", itoa(s.Scroll))
		h.raw(`><div id="org-block" data-source="/ui/sidebar/org">`)
		h.render(OrgBlock(s.Org))
		h.raw(`</div><nav class="nav">`)
		for _, sec := range s.Sections {
			h.raw(`<details class="nav-section"`)
			h.attr("data-section", sec.Key)
			if sec.Open {
				h.raw(` open`)
			}
			h.raw(`><summary>`)
			h.text(sec.Title)
			h.raw(`</summary><ul>`)
			for _, it := range sec.Items {
				h.raw(`<li><a`)
				h.attr("href", it.Route)
				if it.Active {
					h.raw(` class="active" aria-current="page"`)
				}
				h.raw(`>`)
				h.text(it.Label)
				h.raw(`</a></li>`)
			}
			h.raw(`</ul></details>`)
		}
		h.raw(`</nav></aside>`)
		return h.err
	})
}

// OrgBlock — название, инициалы и слоган организации.
func OrgBlock(o Org) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<div class="org"><span class="org-initials">`)
		if o.Initials != "" {
			h.text(o.Initials)
		} else {
			h.raw(`HR`)
		}
		h.raw(`</span><div class="org-text"><strong class="org-name">`)
		if o.Unavailable || o.Name == "" {
			h.t("org.unavailable")
		} else {
			h.text(o.Name)
		}
		h.raw(`</strong>`)
		if o.Tagline != "" {
			h.raw(`<small class="org-tagline">`)
			h.text(o.Tagline)
			h.raw(`</small>`)
		}
		h.raw(`</div></div>`)
		return h.err
	})
}

// Alert — уведомление. kind: success, error, info.
func Alert(kind, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<div`)
		h.attr("class", "alert alert-"+kind)
		if kind == "error" {
			h.raw(` role="alert"`)
		}
		h.raw(`>`)
		h.text(message)
		h.raw(`</div>`)
		return h.err
	})
}

// Blocked — сообщение об отсутствии доступа к странице.
func Blocked() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<p class="blocked" role="alert">`)
		h.t("blocked.message")
		h.raw(`</p>`)
		return h.err
	})
}
