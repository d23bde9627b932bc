package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/podushkina/notifyqueue/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	r, err := NewRedis(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return r, mr
}

func stores(t *testing.T) map[string]Store {
	r, mr := setupRedis(t)
	t.Cleanup(func() {
		r.Close()
		mr.Close()
	})
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  r,
	}
}

func newJob(id string) *job.Job {
	return &job.Job{
		ID:         id,
		Type:       job.TypeEmail,
		Payload:    json.RawMessage(`{"to":"a@example.com"}`),
		Status:     job.StatusPending,
		MaxRetries: job.DefaultMaxRetries,
		CreatedAt:  time.Now(),
	}
}

func TestStore_AddAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			j := newJob("job-1")

			require.NoError(t, s.Add(ctx, j))

			got, err := s.Get(ctx, "job-1")
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, j.ID, got.ID)
			assert.Equal(t, job.TypeEmail, got.Type)
			assert.Equal(t, job.StatusPending, got.Status)
			assert.JSONEq(t, string(j.Payload), string(got.Payload))
			assert.WithinDuration(t, j.CreatedAt, got.CreatedAt, time.Millisecond)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(context.Background(), "nope")
			assert.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStore_UpdateAndAll(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Add(ctx, newJob("a")))
			require.NoError(t, s.Add(ctx, newJob("b")))

			b, err := s.Get(ctx, "b")
			require.NoError(t, err)
			b.Status = job.StatusFailed
			b.Error = "boom"
			require.NoError(t, s.Update(ctx, b))

			all, err := s.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)

			byID := map[string]*job.Job{}
			for _, j := range all {
				byID[j.ID] = j
			}
			assert.Equal(t, job.StatusPending, byID["a"].Status)
			assert.Equal(t, job.StatusFailed, byID["b"].Status)
			assert.Equal(t, "boom", byID["b"].Error)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Add(ctx, newJob("gone")))
			require.NoError(t, s.Delete(ctx, "gone"))
			require.NoError(t, s.Delete(ctx, "never-existed"))

			got, err := s.Get(ctx, "gone")
			assert.NoError(t, err)
			assert.Nil(t, got)

			all, err := s.All(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestMemory_AllInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, m.Add(ctx, newJob(id)))
	}
	require.NoError(t, m.Delete(ctx, "a"))

	all, err := m.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	j := newJob("x")
	require.NoError(t, m.Add(ctx, j))

	j.Status = job.StatusCompleted
	got, err := m.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, job.StatusPending, got.Status)

	got.Status = job.StatusFailed
	again, _ := m.Get(ctx, "x")
	assert.Equal(t, job.StatusPending, again.Status)
}

func TestRedis_SurvivesReconnect(t *testing.T) {
	r, mr := setupRedis(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, newJob("durable")))
	require.NoError(t, r.Close())

	r2, err := NewRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer r2.Close()

	got, err := r2.Get(ctx, "durable")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.StatusPending, got.Status)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedis(addr, "", 0)
	assert.Error(t, err)
}
