package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// LoginView — данные страницы входа.
type LoginView struct {
	Email string
	Error string
	CSRF  string
	Lang  string
}

// Login — страница входа.
func Login(v LoginView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		lang := v.Lang
		if lang == "" {
			lang = "en"
		}
		h.raw(`<!DOCTYPE html><html`)
		h.attr("lang", lang)
		h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		h.t("login.title")
		h.raw(` | HRM Console</title><link rel="stylesheet" href="/static/css/output.css"></head><body class="login-page"><main class="login-box"><h1>`)
		h.t("login.title")
		h.raw(`</h1>`)
		if v.Error != "" {
			h.render(Alert("error", v.Error))
		}
		h.raw(`<form method="post" action="/login" class="form">`)
		h.csrf(v.CSRF)
		h.raw(`<div class="field"><label for="email">`)
		h.t("login.email")
		h.raw(`</label><input type="email" id="email" name="email" required autocomplete="username"`)
		h.attr("value", v.Email)
		h.raw(`></div><div class="field"><label for="password">`)
		h.t("login.password")
		h.raw(`</label><input type="password" id="password" name="password" required autocomplete="current-password"></div><button type="submit" class="btn btn-primary">`)
		h.t("login.submit")
		h.raw(`</button></form></main></body></html>`)
		return h.err
	})
}
