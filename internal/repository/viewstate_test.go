package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
)

func newRedisViewState(t *testing.T) (ViewStateRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisViewState(client, time.Minute), mr
}

// testViewStateContract проверяет общее поведение реализаций.
func testViewStateContract(t *testing.T, repo ViewStateRepository) {
	ctx := context.Background()

	_, err := repo.Get(ctx, "s1", "departments")
	assert.True(t, errors.Is(err, ErrNotFound))

	records := []model.Record{{"id": float64(1), "name": "HR"}}
	require.NoError(t, repo.Put(ctx, "s1", "departments", records))
	require.NoError(t, repo.Put(ctx, "s1", "roles", nil))
	require.NoError(t, repo.Put(ctx, "s2", "departments", []model.Record{}))

	got, err := repo.Get(ctx, "s1", "departments")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "HR", got[0].Text("name"))
	assert.Equal(t, "1", got[0].ID())

	empty, err := repo.Get(ctx, "s1", "roles")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, repo.DropSession(ctx, "s1"))
	_, err = repo.Get(ctx, "s1", "departments")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Get(ctx, "s2", "departments")
	assert.NoError(t, err, "снимки другой сессии не должны удаляться")
}

func TestMemoryViewState(t *testing.T) {
	testViewStateContract(t, NewMemoryViewState(16, time.Minute))
}

func TestRedisViewState(t *testing.T) {
	repo, _ := newRedisViewState(t)
	testViewStateContract(t, repo)
}

func TestRedisViewStateExpires(t *testing.T) {
	repo, mr := newRedisViewState(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "s1", "users", []model.Record{{"id": float64(3)}}))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "s1", "users")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryViewStateEviction(t *testing.T) {
	repo := NewMemoryViewState(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "s", "a", nil))
	require.NoError(t, repo.Put(ctx, "s", "b", nil))
	require.NoError(t, repo.Put(ctx, "s", "c", nil))

	_, err := repo.Get(ctx, "s", "a")
	assert.ErrorIs(t, err, ErrNotFound, "старейший снимок должен быть вытеснен")
}
