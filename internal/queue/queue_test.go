package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/podushkina/notifyqueue/internal/job"
	"github.com/podushkina/notifyqueue/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setupTestQueue(t *testing.T) (*Queue, *clock) {
	c := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	return New(store.NewMemory(), WithClock(c.now)), c
}

func TestQueue_Enqueue(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, job.TypeEmail, map[string]string{"to": "a@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	j, err := q.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, j)

	assert.Equal(t, job.StatusPending, j.Status)
	assert.Equal(t, job.TypeEmail, j.Type)
	assert.Equal(t, 0, j.RetryCount)
	assert.Equal(t, job.DefaultMaxRetries, j.MaxRetries)
	assert.Nil(t, j.ProcessedAt)
	assert.JSONEq(t, `{"to":"a@example.com"}`, string(j.Payload))
}

func TestQueue_EnqueueUniqueIDs(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := q.Enqueue(ctx, job.TypeEmail, i)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestQueue_EnqueueMaxRetries(t *testing.T) {
	q := New(store.NewMemory(), WithDefaultMaxRetries(5))
	ctx := context.Background()

	id, err := q.Enqueue(ctx, job.TypeEmail, nil)
	require.NoError(t, err)
	j, _ := q.Get(ctx, id)
	assert.Equal(t, 5, j.MaxRetries)

	id, err = q.Enqueue(ctx, job.TypeEmail, nil, WithMaxRetries(0))
	require.NoError(t, err)
	j, _ = q.Get(ctx, id)
	assert.Equal(t, 0, j.MaxRetries)
}

func TestQueue_EnqueueBadPayload(t *testing.T) {
	q, _ := setupTestQueue(t)

	_, err := q.Enqueue(context.Background(), job.TypeEmail, func() {})
	assert.Error(t, err)
}

func TestQueue_EnqueueSignalsReady(t *testing.T) {
	q, _ := setupTestQueue(t)

	_, err := q.Enqueue(context.Background(), job.TypeEmail, nil)
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), job.TypeEmail, nil)
	require.NoError(t, err)

	select {
	case <-q.Ready():
	default:
		t.Fatal("expected ready signal")
	}
}

func TestQueue_EnqueueMany(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	ids, err := q.EnqueueMany(ctx, []Request{
		{Type: job.TypeNotification, Payload: map[string]string{"subject": "new lead"}},
		{Type: job.TypeEmail, Payload: map[string]string{"to": "c@example.com"}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	first, _ := q.Get(ctx, ids[0])
	second, _ := q.Get(ctx, ids[1])
	assert.Equal(t, job.TypeNotification, first.Type)
	assert.Equal(t, job.TypeEmail, second.Type)
}

func TestQueue_ListNewestFirst(t *testing.T) {
	q, c := setupTestQueue(t)
	ctx := context.Background()

	older, _ := q.Enqueue(ctx, job.TypeEmail, nil)
	c.advance(time.Second)
	newer, _ := q.Enqueue(ctx, job.TypeEmail, nil)

	jobs, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, newer, jobs[0].ID)
	assert.Equal(t, older, jobs[1].ID)
}

func TestQueue_Stats(t *testing.T) {
	q, c := setupTestQueue(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 12; i++ {
		id, err := q.Enqueue(ctx, job.TypeEmail, i)
		require.NoError(t, err)
		ids = append(ids, id)
		c.advance(time.Second)
	}

	failed, _ := q.Get(ctx, ids[11])
	failed.Status = job.StatusFailed
	failed.Error = "boom"
	require.NoError(t, q.Store().Update(ctx, failed))

	st, err := q.Stats(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, 12, st.TotalJobs)
	assert.Equal(t, 11, st.PendingJobs)
	require.Len(t, st.RecentJobs, 10)
	assert.Equal(t, ids[11], st.RecentJobs[0].ID)
	assert.Equal(t, "boom", st.RecentJobs[0].Error)

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"totalJobs":12`)
	assert.Contains(t, string(data), `"pendingJobs":11`)
	assert.Contains(t, string(data), `"recentJobs":[`)
}

func TestQueue_StatsEmpty(t *testing.T) {
	q, _ := setupTestQueue(t)

	st, err := q.Stats(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalJobs)
	assert.NotNil(t, st.RecentJobs)
}

func TestQueue_Delete(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, job.TypeEmail, nil)
	assert.ErrorIs(t, q.Delete(ctx, id), ErrNotTerminal)
	assert.ErrorIs(t, q.Delete(ctx, "missing"), ErrNotFound)

	j, _ := q.Get(ctx, id)
	j.Status = job.StatusFailed
	require.NoError(t, q.Store().Update(ctx, j))

	require.NoError(t, q.Delete(ctx, id))
	found, _ := q.Get(ctx, id)
	assert.Nil(t, found)
}

func TestQueue_Retry(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, job.TypeEmail, nil)
	_, err := q.Retry(ctx, id)
	assert.ErrorIs(t, err, ErrNotFailed)

	j, _ := q.Get(ctx, id)
	j.Status = job.StatusFailed
	j.RetryCount = 3
	j.Error = "boom"
	require.NoError(t, q.Store().Update(ctx, j))

	retried, err := q.Retry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusPending, retried.Status)
	assert.Equal(t, 0, retried.RetryCount)
	assert.Empty(t, retried.Error)

	_, err = q.Retry(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueue_RedisBacked(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rs, err := store.NewRedis(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer rs.Close()

	q := New(rs)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, job.TypeEmail, map[string]string{"to": "a@example.com"})
	require.NoError(t, err)

	j, err := q.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, job.StatusPending, j.Status)

	n, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
