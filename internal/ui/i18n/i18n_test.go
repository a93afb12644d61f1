package i18n

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadedBundle(t *testing.T) *Bundle {
	t.Helper()
	b := NewBundle(testLogger())
	require.NoError(t, LoadFromEmbedFS(b, testLogger()))
	return b
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	b := loadedBundle(t)
	en := b.Keys("en")
	require.NotEmpty(t, en)
	assert.Equal(t, en, b.Keys("ru"))
}

func TestTranslateFallbacks(t *testing.T) {
	b := NewBundle(testLogger())
	require.NoError(t, b.LoadMessages("en", []byte(`{"a":"A","greet":"Hello, %s"}`)))
	require.NoError(t, b.LoadMessages("ru", []byte(`{"greet":"Привет, %s"}`)))

	assert.Equal(t, "A", b.Translate("ru", "a"), "нет в ru, берётся en")
	assert.Equal(t, "missing.key", b.Translate("ru", "missing.key"))
	assert.Equal(t, "Привет, Asha", b.Translatef("ru", "greet", "Asha"))
	assert.Error(t, b.LoadMessages("en", []byte(`[1,2]`)))
}

func TestMatchLanguage(t *testing.T) {
	tests := map[string]string{
		"":               "en",
		"ru-RU,ru;q=0.9": "ru",
		"de-DE,en;q=0.5": "en",
		"fr":             "en",
		"en-GB,ru;q=0.8": "en",
	}
	for header, want := range tests {
		assert.Equal(t, want, MatchLanguage(header), "Accept-Language %q", header)
	}
}

func TestMiddlewarePrefersCookie(t *testing.T) {
	var got string
	h := Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = LangFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en")
	req.AddCookie(&http.Cookie{Name: LangCookieName, Value: "ru"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "ru", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: LangCookieName, Value: "xx"})
	req.Header.Set("Accept-Language", "ru")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "ru", got)

	assert.Equal(t, DefaultLang, LangFromContext(context.Background()))
}
