package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
)

func levelByName(levels []ReportingLevel, name string) *ReportingLevel {
	for i := range levels {
		if levels[i].Name == name {
			return &levels[i]
		}
	}
	return nil
}

func TestBuildHierarchy(t *testing.T) {
	cat := testCatalog(t)
	users := []model.Record{
		{"id": 1, "name": "Dr. Mehta", "role_name": "Medical DIRECTOR"},
		{"id": 2, "name": "Sister Anne", "role_name": "Head Nurse", "supervisor_id": 1},
		{"id": 3, "name": "Ravi", "role_id": 9, "supervisor_id": 2},
		{"id": 4, "name": "Lost", "role_name": "Staff Nurse", "supervisor_id": 99},
		{"id": 5, "name": "Volunteer", "role_name": "Volunteer"},
	}
	roles := []model.Record{{"id": 9, "name": "Lab Technician"}}

	levels := BuildHierarchy(cat.Levels, users, roles)

	exec := levelByName(levels, "Executive")
	require.NotNil(t, exec)
	require.Len(t, exec.Members, 1)
	assert.Equal(t, "Dr. Mehta", exec.Members[0].Name)
	assert.Empty(t, exec.Members[0].Supervisor, "без руководителя нет отметки")
	assert.False(t, exec.Members[0].SupervisorMissing)

	hod := levelByName(levels, "Head of Department")
	require.Len(t, hod.Members, 1)
	assert.Equal(t, "Dr. Mehta", hod.Members[0].Supervisor)

	staff := levelByName(levels, "Staff")
	require.Len(t, staff.Members, 2)
	assert.Equal(t, "Lab Technician", staff.Members[0].RoleName, "название роли берётся из справочника ролей")
	assert.Equal(t, UnknownSupervisor, staff.Members[1].Supervisor)
	assert.True(t, staff.Members[1].SupervisorMissing)

	unassigned := levelByName(levels, UnassignedLevel)
	require.NotNil(t, unassigned)
	assert.Equal(t, "Volunteer", unassigned.Members[0].Name)
	assert.Equal(t, UnassignedLevel, levels[len(levels)-1].Name)
}

func TestBuildHierarchyNoUnassigned(t *testing.T) {
	levels := BuildHierarchy(testCatalog(t).Levels, []model.Record{{"id": 1, "role_name": "Nurse"}}, nil)
	assert.Nil(t, levelByName(levels, UnassignedLevel))
}

func TestReportingLoadWithoutRolesPermission(t *testing.T) {
	fb := newFakeBackend()
	fb.on(http.MethodGet, "/api/city/users", func(any) (any, error) {
		return []any{map[string]any{"id": 1, "name": "A", "role_name": "Ward Manager"}}, nil
	})
	dl, _ := newTestDataLayer(t, fb)
	svc := NewReportingService(dl, testLogger())

	levels, err := svc.Load(context.Background(), scopeFor(userKV(`["view_users"]`)))

	require.NoError(t, err)
	assert.Len(t, levelByName(levels, "Manager").Members, 1)
	assert.Equal(t, 1, fb.callCount(), "роли без права не запрашиваются")
}

func TestReportingLoadForbidden(t *testing.T) {
	fb := newFakeBackend()
	dl, _ := newTestDataLayer(t, fb)

	_, err := NewReportingService(dl, testLogger()).Load(context.Background(), scopeFor(userKV(`[]`)))

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, fb.callCount())
}
