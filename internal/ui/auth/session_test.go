package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// roundTrip фиксирует сессию и возвращает запрос с полученным cookie.
func roundTrip(t *testing.T, store Store, sess *Session) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	if err := store.Commit(context.Background(), w, sess); err != nil {
		t.Fatalf("Commit() вернул ошибку: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Cookie не установлен")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return req
}

// TestCookieStoreRoundTrip проверяет шифрование и чтение сессии из cookie.
func TestCookieStoreRoundTrip(t *testing.T) {
	store, err := NewCookieStore("", time.Hour, false)
	if err != nil {
		t.Fatalf("Ошибка создания CookieStore: %v", err)
	}

	sess := NewSession()
	sess.SetAll(map[string]string{
		KeyEmail:       "admin@hospital.org",
		KeyUserName:    "Asha Rao",
		KeyRoleName:    "HR Manager",
		KeyLoginType:   "admin",
		KeyPermissions: `["view_departments"]`,
		KeyAccessToken: "token-123",
	})
	sess.AddFlash(FlashSuccess, "Сохранено")

	got, err := store.Load(context.Background(), roundTrip(t, store, sess))
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if got.ID != sess.ID {
		t.Errorf("ID: want %q, got %q", sess.ID, got.ID)
	}
	for k, v := range sess.values {
		if got.Get(k) != v {
			t.Errorf("%s: want %q, got %q", k, v, got.Get(k))
		}
	}
	if !got.Authenticated() {
		t.Error("Ожидалось Authenticated()=true")
	}
	flashes := got.PopFlashes()
	if len(flashes) != 1 || flashes[0].Message != "Сохранено" {
		t.Errorf("Flashes: got %+v", flashes)
	}
}

// TestCookieStoreCookieAttributes проверяет атрибуты cookie сессии.
func TestCookieStoreCookieAttributes(t *testing.T) {
	store, _ := NewCookieStore("test-key", 2*time.Hour, true)

	w := httptest.NewRecorder()
	if err := store.Commit(context.Background(), w, NewSession()); err != nil {
		t.Fatalf("Commit() вернул ошибку: %v", err)
	}
	cookie := w.Result().Cookies()[0]

	if cookie.Name != SessionCookieName {
		t.Errorf("Cookie name: want %q, got %q", SessionCookieName, cookie.Name)
	}
	if cookie.Path != "/" {
		t.Errorf("Cookie path: want /, got %q", cookie.Path)
	}
	if cookie.MaxAge != 7200 {
		t.Errorf("MaxAge: want 7200, got %d", cookie.MaxAge)
	}
	if !cookie.HttpOnly || !cookie.Secure {
		t.Error("Cookie должен быть HttpOnly и Secure")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("Cookie должен быть SameSite=Lax")
	}
}

// TestCookieStoreWrongKey проверяет, что cookie с чужим ключом не читается.
func TestCookieStoreWrongKey(t *testing.T) {
	store1, _ := NewCookieStore("key-one", time.Hour, false)
	store2, _ := NewCookieStore("key-two", time.Hour, false)

	sess := NewSession()
	sess.Set(KeyAccessToken, "secret")

	got, err := store2.Load(context.Background(), roundTrip(t, store1, sess))
	if !errors.Is(err, ErrSessionCorrupt) {
		t.Fatalf("Ожидалась ErrSessionCorrupt, получено: %v", err)
	}
	if got == nil || got.Authenticated() {
		t.Error("Ожидалась новая пустая сессия")
	}
}

// TestCookieStoreMissingCookie проверяет создание новой сессии без cookie.
func TestCookieStoreMissingCookie(t *testing.T) {
	store, _ := NewCookieStore("test-key", time.Hour, false)

	sess, err := store.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Ожидалось nil error, получено: %v", err)
	}
	if sess.ID == "" || sess.Authenticated() {
		t.Error("Ожидалась новая пустая сессия с идентификатором")
	}
}

// TestCookieStoreClear проверяет, что Clear удаляет cookie и все значения.
func TestCookieStoreClear(t *testing.T) {
	store, _ := NewCookieStore("test-key", time.Hour, false)

	sess := NewSession()
	sess.Set(KeyEmail, "user@hospital.org")
	sess.Set(KeyOrganizationName, "City Hospital")
	sess.Clear()

	if len(sess.values) != 0 {
		t.Errorf("После Clear() остались значения: %v", sess.values)
	}

	w := httptest.NewRecorder()
	if err := store.Commit(context.Background(), w, sess); err != nil {
		t.Fatalf("Commit() вернул ошибку: %v", err)
	}
	cookie := w.Result().Cookies()[0]
	if cookie.MaxAge != -1 || cookie.Value != "" {
		t.Errorf("Ожидался удаляющий cookie, получено MaxAge=%d Value=%q", cookie.MaxAge, cookie.Value)
	}
}

// TestCookieStoreTooLarge проверяет отказ при превышении размера cookie.
func TestCookieStoreTooLarge(t *testing.T) {
	store, _ := NewCookieStore("test-key", time.Hour, false)

	sess := NewSession()
	sess.Set(KeyPermissions, strings.Repeat("x", 5000))

	err := store.Commit(context.Background(), httptest.NewRecorder(), sess)
	if !errors.Is(err, ErrCookieTooLarge) {
		t.Errorf("Ожидалась ErrCookieTooLarge, получено: %v", err)
	}
}

func TestStoreCheck(t *testing.T) {
	cookies, _ := NewCookieStore("test-key", time.Hour, false)
	redisStore, _ := newTestRedisStore(t)

	small := NewSession()
	small.Set(KeyPermissions, `["view_users"]`)
	large := NewSession()
	large.Set(KeyPermissions, strings.Repeat("x", 5000))

	if err := cookies.Check(small); err != nil {
		t.Errorf("Check(small) = %v", err)
	}
	if err := cookies.Check(large); !errors.Is(err, ErrCookieTooLarge) {
		t.Errorf("Check(large) = %v, ожидалась ErrCookieTooLarge", err)
	}
	if err := redisStore.Check(large); err != nil {
		t.Errorf("Redis не ограничивает размер: %v", err)
	}
}

func TestRegenerate(t *testing.T) {
	fresh := NewSession()
	id := fresh.ID
	fresh.Regenerate()
	if fresh.ID == id {
		t.Error("идентификатор не изменился")
	}
	if fresh.PreviousID() != "" {
		t.Error("новая сессия ещё не сохранена, удалять нечего")
	}

	stored := sessionFromPayload(payload{ID: "old-id", Values: map[string]string{CSRFSessionKey: "t"}})
	stored.Regenerate()
	stored.Regenerate()
	if stored.PreviousID() != "old-id" {
		t.Errorf("PreviousID() = %q, ожидался исходный идентификатор", stored.PreviousID())
	}
	if stored.Get(CSRFSessionKey) != "" {
		t.Error("CSRF-токен должен сбрасываться")
	}
}

// TestSessionUnchangedNotRewritten проверяет, что неизменённая сессия не пишет cookie.
func TestSessionUnchangedNotRewritten(t *testing.T) {
	store, _ := NewCookieStore("test-key", time.Hour, false)

	sess := NewSession()
	sess.Set(KeyEmail, "a@b.c")
	loaded, err := store.Load(context.Background(), roundTrip(t, store, sess))
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	loaded.Set(KeyEmail, "a@b.c")
	w := httptest.NewRecorder()
	if err := store.Commit(context.Background(), w, loaded); err != nil {
		t.Fatalf("Commit() вернул ошибку: %v", err)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("Неизменённая сессия не должна перезаписывать cookie")
	}
}

// TestNilSessionGet проверяет безопасное чтение из nil-сессии.
func TestNilSessionGet(t *testing.T) {
	var sess *Session
	if sess.Get(KeyEmail) != "" {
		t.Error("Get() на nil-сессии должен возвращать пустую строку")
	}
}

// TestScrollCookie проверяет сохранение и чтение позиции прокрутки.
func TestScrollCookie(t *testing.T) {
	w := httptest.NewRecorder()
	WriteScroll(w, 420, false)

	cookie := w.Result().Cookies()[0]
	if cookie.Name != ScrollCookieName {
		t.Errorf("Cookie name: want %q, got %q", ScrollCookieName, cookie.Name)
	}
	if cookie.MaxAge != 0 || !cookie.Expires.IsZero() {
		t.Error("Cookie прокрутки должен быть сеансовым")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	if got := ReadScroll(req); got != 420 {
		t.Errorf("ReadScroll() = %d, ожидается 420", got)
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: ScrollCookieName, Value: "-5"})
	if got := ReadScroll(bad); got != 0 {
		t.Errorf("ReadScroll() для отрицательного значения = %d, ожидается 0", got)
	}
}

// TestCSRFManager проверяет выдачу и проверку CSRF-токена.
func TestCSRFManager(t *testing.T) {
	m := NewCSRFManager("csrf-secret-for-tests")
	sess := NewSession()

	token := m.EnsureToken(sess)
	if token == "" {
		t.Fatal("EnsureToken() вернул пустой токен")
	}
	if again := m.EnsureToken(sess); again != token {
		t.Error("EnsureToken() должен возвращать существующий токен")
	}
	if err := m.VerifyToken(sess, token); err != nil {
		t.Errorf("VerifyToken() вернул ошибку: %v", err)
	}
	if err := m.VerifyToken(sess, "forged"); !errors.Is(err, ErrCSRFTokenMismatch) {
		t.Errorf("Ожидалась ErrCSRFTokenMismatch, получено: %v", err)
	}
	if err := m.VerifyToken(sess, ""); !errors.Is(err, ErrCSRFTokenMissing) {
		t.Errorf("Ожидалась ErrCSRFTokenMissing, получено: %v", err)
	}
}
