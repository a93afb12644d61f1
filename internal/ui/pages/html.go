// Пакет pages — HTML-компоненты HRM Console (templ.Component).
package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/Harinie05/HRM-sub002/internal/ui/i18n"
)

// html — построчная запись разметки с накоплением первой ошибки.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTML(ctx context.Context, w io.Writer) *html {
	return &html{ctx: ctx, w: w}
}

// raw пишет доверенную разметку без экранирования.
func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text пишет экранированный текст.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr пишет атрибут с экранированным значением.
func (h *html) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// t пишет перевод ключа.
func (h *html) t(key string) {
	h.text(i18n.T(h.ctx, key))
}

func (h *html) tr(key string) string {
	return i18n.T(h.ctx, key)
}

func (h *html) render(c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

// csrf пишет скрытое поле CSRF-токена.
func (h *html) csrf(token string) {
	h.raw(`<input type="hidden" name="csrf_token"`)
	h.attr("value", token)
	h.raw(`>`)
}

// postButton пишет форму из одной кнопки (POST).
func (h *html) postButton(action, token, class, label string, confirm string) {
	h.raw(`<form method="post" class="inline"`)
	h.attr("action", action)
	if confirm != "" {
		h.attr("data-confirm", confirm)
	}
	h.raw(`>`)
	h.csrf(token)
	h.raw(`<button type="submit"`)
	h.attr("class", class)
	h.raw(`>`)
	h.text(label)
	h.raw(`</button></form>`)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
