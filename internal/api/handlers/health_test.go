package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChecker struct{ status, message string }

func (c staticChecker) CheckReady() (string, string) { return c.status, c.message }

type pinger struct{ err error }

func (p pinger) CheckReady(context.Context, string) error { return p.err }

func TestOverallStatus(t *testing.T) {
	assert.Equal(t, "ok", overallStatus())
	assert.Equal(t, "ok", overallStatus("ok", "ok"))
	assert.Equal(t, "degraded", overallStatus("ok", "degraded"))
	assert.Equal(t, "fail", overallStatus("degraded", "fail", "ok"))
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]ReadinessChecker
		wantCode int
		want     string
	}{
		{"все в порядке", map[string]ReadinessChecker{"backend": staticChecker{status: "ok"}}, http.StatusOK, "ok"},
		{"redis недоступен", map[string]ReadinessChecker{
			"backend": staticChecker{status: "ok"},
			"redis":   staticChecker{status: "degraded", message: "connection refused"},
		}, http.StatusOK, "degraded"},
		{"backend недоступен", map[string]ReadinessChecker{"backend": staticChecker{status: "fail"}}, http.StatusServiceUnavailable, "fail"},
		{"нет проверки", map[string]ReadinessChecker{"backend": nil}, http.StatusServiceUnavailable, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checkers)
			rec := httptest.NewRecorder()
			h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp healthReadyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, "hrm-console", resp.Service)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestBackendCheckerFallsBackToPing(t *testing.T) {
	status, _ := NewBackendChecker(nil, pinger{}, "/health").CheckReady()
	assert.Equal(t, "ok", status)

	status, msg := NewBackendChecker(nil, pinger{err: errors.New("connection refused")}, "/health").CheckReady()
	assert.Equal(t, "fail", status)
	assert.Contains(t, msg, "connection refused")
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	status, _ := NewRedisChecker(client).CheckReady()
	assert.Equal(t, "ok", status)

	mr.Close()
	status, _ = NewRedisChecker(client).CheckReady()
	assert.Equal(t, "degraded", status)
}

func TestFindHealthByPrefix(t *testing.T) {
	healthy, found := findHealthByPrefix(map[string]bool{"hrm-backend:api.city.org:443": true}, "hrm-backend")
	assert.True(t, found)
	assert.True(t, healthy)

	healthy, found = findHealthByPrefix(map[string]bool{
		"hrm-backend:10.0.0.1:443": true,
		"hrm-backend:10.0.0.2:443": false,
	}, "hrm-backend")
	assert.True(t, found)
	assert.False(t, healthy)

	_, found = findHealthByPrefix(map[string]bool{"hrm-jwks:idp:443": true}, "hrm-backend")
	assert.False(t, found)
}
