package auth

import (
	"net/http"
	"strconv"
)

// ScrollCookieName — фиксированный ключ эфемерного хранилища позиции
// прокрутки боковой панели.
const ScrollCookieName = "sidebar_scroll"

// maxScrollOffset ограничивает значение, принимаемое от клиента.
const maxScrollOffset = 1_000_000

// ReadScroll возвращает сохранённое смещение прокрутки или 0.
func ReadScroll(r *http.Request) int {
	c, err := r.Cookie(ScrollCookieName)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(c.Value)
	if err != nil || n < 0 || n > maxScrollOffset {
		return 0
	}
	return n
}

// WriteScroll сохраняет смещение в cookie без срока жизни
// (удаляется браузером при завершении сеанса).
func WriteScroll(w http.ResponseWriter, offset int, secure bool) {
	if offset < 0 || offset > maxScrollOffset {
		offset = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ScrollCookieName,
		Value:    strconv.Itoa(offset),
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
