package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
)

func TestNextStep(t *testing.T) {
	tests := []struct {
		name string
		rec  model.Record
		want string
		ok   bool
	}{
		{"новая запись", model.Record{}, "documents", true},
		{"документы загружены", model.Record{"documents_uploaded": true}, "verify", true},
		{"пропуск шага не засчитывается", model.Record{"documents_uploaded": true, "appointment_letter_issued": true}, "verify", true},
		{"все шаги", model.Record{
			"documents_uploaded": true, "documents_verified": true,
			"appointment_letter_issued": true, "employee_created": true,
		}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, ok := NextStep(tt.rec)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, step.Key)
		})
	}
}

func TestStepsOfferedInOrder(t *testing.T) {
	states := Steps(model.Record{"documents_uploaded": true, "appointment_letter_issued": true})

	require.Len(t, states, 4)
	assert.True(t, states[0].Done)
	assert.True(t, states[1].Available)
	assert.False(t, states[2].Done, "шаг после незавершённого не считается выполненным")
	assert.False(t, states[2].Available)
	assert.False(t, states[3].Available)
}

// onboardingBackend хранит одну запись оформления.
func onboardingBackend(flags model.Record) *fakeBackend {
	fb := newFakeBackend()
	var mu sync.Mutex
	rec := model.Record{"id": 7, "candidate_name": "Asha"}
	for k, v := range flags {
		rec[k] = v
	}
	get := func(any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		return rec.Clone(), nil
	}
	set := func(flag string) func(any) (any, error) {
		return func(any) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			rec[flag] = true
			return nil, nil
		}
	}
	fb.on(http.MethodGet, "/api/city/onboarding/7", get)
	fb.on(http.MethodGet, "/api/city/onboarding", func(any) (any, error) {
		r, _ := get(nil)
		return []any{r}, nil
	})
	fb.on("UPLOAD", "/api/city/onboarding/7/documents", set("documents_uploaded"))
	fb.on(http.MethodPatch, "/api/city/onboarding/7/documents/verify", set("documents_verified"))
	fb.on(http.MethodPost, "/api/city/onboarding/7/appointment-letter", set("appointment_letter_issued"))
	fb.on(http.MethodPost, "/api/city/onboarding/7/create-employee", set("employee_created"))
	fb.on(http.MethodGet, "/api/city/employees", func(any) (any, error) { return []any{}, nil })
	return fb
}

func TestAdvanceUploadsDocument(t *testing.T) {
	fb := onboardingBackend(nil)
	dl, _ := newTestDataLayer(t, fb)
	svc := NewOnboardingService(dl, fb, testLogger())
	sc := scopeFor(adminKV())

	rec, err := svc.Advance(context.Background(), sc, "7", "documents", &Document{
		Filename: "id.pdf", Kind: "identity", Content: strings.NewReader("pdf"),
	})

	require.NoError(t, err)
	assert.True(t, rec.Bool("documents_uploaded"), "запись загружается заново после шага")
	step, _ := NextStep(rec)
	assert.Equal(t, "verify", step.Key)
	assert.Equal(t, 1, fb.countOf(http.MethodGet, "/api/city/onboarding"), "список оформлений перезагружается")
}

func TestAdvanceUploadRequiresDocument(t *testing.T) {
	fb := onboardingBackend(nil)
	dl, _ := newTestDataLayer(t, fb)
	svc := NewOnboardingService(dl, fb, testLogger())

	_, err := svc.Advance(context.Background(), scopeFor(adminKV()), "7", "documents", nil)

	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, fb.countOf("UPLOAD", "/api/city/onboarding/7/documents"))
}

func TestAdvanceOutOfOrderRejected(t *testing.T) {
	fb := onboardingBackend(model.Record{"documents_uploaded": true})
	dl, _ := newTestDataLayer(t, fb)
	svc := NewOnboardingService(dl, fb, testLogger())

	_, err := svc.Advance(context.Background(), scopeFor(adminKV()), "7", "employee", nil)

	assert.ErrorIs(t, err, ErrStepUnavailable)
	assert.Zero(t, fb.countOf(http.MethodPost, "/api/city/onboarding/7/create-employee"))
}

func TestAdvanceFullSequence(t *testing.T) {
	fb := onboardingBackend(model.Record{"documents_uploaded": true})
	dl, _ := newTestDataLayer(t, fb)
	svc := NewOnboardingService(dl, fb, testLogger())
	sc := scopeFor(userKV(`["view_onboarding","edit_onboarding","view_employees"]`))
	ctx := context.Background()

	for _, key := range []string{"verify", "appointment", "employee"} {
		_, err := svc.Advance(ctx, sc, "7", key, nil)
		require.NoError(t, err, "шаг %s", key)
	}

	rec, err := svc.Load(ctx, sc, "7")
	require.NoError(t, err)
	_, ok := NextStep(rec)
	assert.False(t, ok, "все шаги выполнены")
	assert.Equal(t, 1, fb.countOf(http.MethodGet, "/api/city/employees"), "создание сотрудника обновляет список сотрудников")
}

func TestAdvanceForbidden(t *testing.T) {
	fb := onboardingBackend(nil)
	dl, _ := newTestDataLayer(t, fb)
	svc := NewOnboardingService(dl, fb, testLogger())

	_, err := svc.Advance(context.Background(), scopeFor(userKV(`["view_onboarding"]`)), "7", "documents", nil)

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, fb.callCount())
}
