package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardCardsDegradeIndependently(t *testing.T) {
	fb := newFakeBackend()
	fb.on(http.MethodGet, "/api/city/departments", func(any) (any, error) {
		return []any{map[string]any{"id": 1}, map[string]any{"id": 2}}, nil
	})
	fb.on(http.MethodGet, "/api/city/recruitment/requisitions", func(any) (any, error) {
		return []any{
			map[string]any{"id": 1, "status": "Open"},
			map[string]any{"id": 2, "status": "Closed"},
			map[string]any{"id": 3, "status": "open"},
		}, nil
	})
	fb.on(http.MethodGet, "/api/city/employees", func(any) (any, error) { return nil, serverError() })
	dl, _ := newTestDataLayer(t, fb)
	svc := NewDashboardService(dl, testLogger())

	cards := svc.Load(context.Background(), scopeFor(userKV(`["view_departments","view_job_requisitions","view_employees"]`)))

	require.Len(t, cards, 3, "карточки без права просмотра не показываются")
	byKey := map[string]DashboardCard{}
	for _, c := range cards {
		byKey[c.Key] = c
	}

	assert.Error(t, byKey["employees"].Err)
	assert.Empty(t, byKey["employees"].Route, "скрытый ресурс без ссылки")
	assert.NoError(t, byKey["departments"].Err)
	assert.Equal(t, 2, byKey["departments"].Count)
	assert.Equal(t, "/r/departments", byKey["departments"].Route)
	assert.Equal(t, 2, byKey["job_requisitions"].Count)
	assert.Equal(t, 3, byKey["job_requisitions"].Total)
	assert.Zero(t, fb.countOf(http.MethodGet, "/api/city/compliance"))
}
