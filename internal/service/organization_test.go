package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harinie05/HRM-sub002/internal/backend"
	"github.com/Harinie05/HRM-sub002/internal/events"
)

const profilePath = "/api/city/organization/profile"

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"City General Hospital", "CG"},
		{"apollo", "A"},
		{"  sri   ram  ", "SR"},
		{"", ""},
		{"здоровье плюс", "ЗП"},
	}
	for _, tt := range tests {
		if got := Initials(tt.name); got != tt.want {
			t.Errorf("Initials(%q) = %q, ожидается %q", tt.name, got, tt.want)
		}
	}
}

func TestResolveFetchesOnceThenCaches(t *testing.T) {
	fb := newFakeBackend()
	fb.on(http.MethodGet, profilePath, func(any) (any, error) {
		return map[string]any{"name": "City General Hospital", "tagline": "Care first"}, nil
	})
	svc := NewOrganizationService(fb, testCatalog(t), events.NewMemoryBroker(), testLogger())
	sess := userKV(`[]`)
	sc := scopeFor(sess)
	ctx := context.Background()

	org, err := svc.Resolve(ctx, sc, sess)
	require.NoError(t, err)
	assert.Equal(t, "City General Hospital", org.Name)
	assert.Equal(t, "CG", org.Initials())
	assert.Equal(t, "City General Hospital", sess["organization_name"])
	assert.Equal(t, 1, fb.callCount())

	org, err = svc.Resolve(ctx, sc, sess)
	require.NoError(t, err)
	assert.Equal(t, "Care first", org.Tagline)
	assert.Equal(t, 1, fb.callCount(), "повторный вызов берёт значение из сессии")

	svc.Invalidate(sess)
	_, err = svc.Resolve(ctx, sc, sess)
	require.NoError(t, err)
	assert.Equal(t, 2, fb.callCount())
}

func TestResolveFailureLeavesSessionEmpty(t *testing.T) {
	fb := newFakeBackend()
	fb.on(http.MethodGet, profilePath, func(any) (any, error) { return nil, serverError() })
	svc := NewOrganizationService(fb, testCatalog(t), events.NewMemoryBroker(), testLogger())
	sess := adminKV()

	_, err := svc.Resolve(context.Background(), scopeFor(sess), sess)

	require.Error(t, err)
	assert.NotContains(t, sess, "organization_name")
}

func TestUpdatePublishesEvent(t *testing.T) {
	fb := newFakeBackend()
	var sent any
	fb.on(http.MethodPut, profilePath, func(body any) (any, error) {
		sent = body
		return nil, nil
	})
	broker := events.NewMemoryBroker()
	ch, cancel := broker.Subscribe()
	defer cancel()

	svc := NewOrganizationService(fb, testCatalog(t), broker, testLogger())
	sess := userKV(`["edit_organization"]`)
	sess["organization_name"] = "Old Name"

	err := svc.Update(context.Background(), scopeFor(sess), sess, Organization{Name: " New Name ", Tagline: "Care"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"name": "New Name", "tagline": "Care"}, sent)
	assert.Equal(t, "New Name", sess["organization_name"])

	select {
	case ev := <-ch:
		assert.Equal(t, events.TypeOrganizationUpdated, ev.Type)
		assert.Equal(t, "city", ev.Tenant)
		assert.Equal(t, "New Name", ev.Name)
	case <-time.After(time.Second):
		t.Fatal("событие не опубликовано")
	}
}

func TestUpdateRejections(t *testing.T) {
	fb := newFakeBackend()
	svc := NewOrganizationService(fb, testCatalog(t), events.NewMemoryBroker(), testLogger())
	ctx := context.Background()

	viewer := userKV(`["view_organization"]`)
	err := svc.Update(ctx, scopeFor(viewer), viewer, Organization{Name: "X"})
	assert.ErrorIs(t, err, ErrForbidden)

	admin := adminKV()
	err = svc.Update(ctx, scopeFor(admin), admin, Organization{Name: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, fb.callCount())
}

// blockingProfile держит запрос профиля до release и запоминает,
// был ли отменён контекст запроса.
type blockingProfile struct {
	*fakeBackend
	started  chan struct{}
	release  chan struct{}
	canceled chan bool
}

func (b *blockingProfile) Do(ctx context.Context, creds backend.Credentials, method, path string, body, out any) error {
	b.started <- struct{}{}
	select {
	case <-b.release:
		b.canceled <- false
	case <-ctx.Done():
		b.canceled <- true
		return ctx.Err()
	}
	return b.fakeBackend.Do(ctx, creds, method, path, body, out)
}

func TestFetchSurvivesFirstCallerCancel(t *testing.T) {
	fb := newFakeBackend()
	fb.on(http.MethodGet, profilePath, func(any) (any, error) {
		return map[string]any{"name": "City General Hospital"}, nil
	})
	client := &blockingProfile{
		fakeBackend: fb,
		started:     make(chan struct{}, 4),
		release:     make(chan struct{}),
		canceled:    make(chan bool, 4),
	}
	svc := NewOrganizationService(client, testCatalog(t), events.NewMemoryBroker(), testLogger())
	sc := scopeFor(adminKV())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Fetch(ctxA, sc)
		errA <- err
	}()
	<-client.started

	type result struct {
		org Organization
		err error
	}
	resB := make(chan result, 1)
	go func() {
		org, err := svc.Fetch(context.Background(), sc)
		resB <- result{org, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("отменённый вызов не вернулся")
	}

	close(client.release)
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		assert.Equal(t, "City General Hospital", r.org.Name)
	case <-time.After(time.Second):
		t.Fatal("второй вызов не получил результат")
	}
	assert.False(t, <-client.canceled, "общий запрос не отменяется вместе с первым вызывающим")
	assert.Equal(t, 1, fb.callCount())
}

func TestFetchDoesNotShareAcrossTokens(t *testing.T) {
	assert.NotEqual(t,
		flightKey(backend.Credentials{Tenant: "city", AccessToken: "a"}),
		flightKey(backend.Credentials{Tenant: "city", AccessToken: "b"}),
	)
	assert.Equal(t,
		flightKey(backend.Credentials{Tenant: "city", AccessToken: "a"}),
		flightKey(backend.Credentials{Tenant: "city", AccessToken: "a"}),
	)
}
