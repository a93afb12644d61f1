package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware())
	r.Post("/r/{resource}/{id}/update", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/r/{resource}/{id}/update", "303"))
	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/r/departments/"+id+"/update", nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/r/{resource}/{id}/update", "303"))

	assert.Equal(t, 3.0, after-before)
}

func TestRoutePatternFallbacks(t *testing.T) {
	assert.Equal(t, "/static/*", routePattern(httptest.NewRequest(http.MethodGet, "/static/css/output.css", nil)))
	assert.Equal(t, "unmatched", routePattern(httptest.NewRequest(http.MethodGet, "/nowhere", nil)))
}

func TestRequestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	h := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Empty(t, buf.String(), "health probes пишутся на уровне DEBUG")

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/r/users", nil))
	line := buf.String()
	assert.Contains(t, line, "level=INFO")
	assert.Contains(t, line, "path=/r/users")
	assert.Contains(t, line, "bytes=2")
	assert.Contains(t, line, "request_id=")

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.True(t, strings.Contains(buf.String(), "level=WARN"))
}
