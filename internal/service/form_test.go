package service

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/resource"
)

func testCatalog(t *testing.T) *resource.Catalog {
	t.Helper()
	cat, err := resource.Default()
	require.NoError(t, err)
	return cat
}

func TestBuildPayload(t *testing.T) {
	users := mustResource(t, testCatalog(t), "users")

	payload, err := BuildPayload(users, url.Values{
		"name":    {"  Asha Rao "},
		"email":   {"asha@city.example"},
		"role_id": {"4"},
		"phone":   {""},
	})

	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", payload["name"])
	assert.Equal(t, int64(4), payload["role_id"])
	assert.NotContains(t, payload, "phone", "пустое необязательное поле не передаётся")
}

func TestBuildPayloadValidation(t *testing.T) {
	cat := testCatalog(t)

	tests := []struct {
		name     string
		resource string
		form     url.Values
		field    string
	}{
		{"обязательное поле", "departments", url.Values{"code": {"HR"}}, "name"},
		{"email", "users", url.Values{"name": {"A"}, "email": {"not-an-email"}, "role_id": {"1"}}, "email"},
		{"число", "users", url.Values{"name": {"A"}, "email": {"a@b.co"}, "role_id": {"four"}}, "role_id"},
		{"дата", "offers", url.Values{"candidate_id": {"1"}, "position": {"RN"}, "ctc": {"10"}, "joining_date": {"31/12/2026"}}, "joining_date"},
		{"вариант select", "departments", url.Values{"name": {"HR"}, "code": {"HR"}, "status": {"Archived"}}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPayload(mustResource(t, cat, tt.resource), tt.form)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestBuildPayloadList(t *testing.T) {
	roles := mustResource(t, testCatalog(t), "roles")

	payload, err := BuildPayload(roles, url.Values{
		"name":        {"Ward Manager"},
		"permissions": {"view_users, edit_user,,view_roles "},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"view_users", "edit_user", "view_roles"}, payload["permissions"])
}

func TestSeedFormIsIndependentCopy(t *testing.T) {
	deps := mustResource(t, testCatalog(t), "departments")
	rec := model.Record{"id": 1, "name": "HR", "code": "HR01", "head_name": "Dr. Iyer"}

	form := SeedForm(deps, rec)
	assert.Equal(t, "HR", form.Get("name"))
	assert.False(t, form.Has("head_name"), "в форму попадают только редактируемые поля")

	form.Set("name", "People")
	assert.Equal(t, "HR", rec.Text("name"), "изменение формы не затрагивает запись")
}
