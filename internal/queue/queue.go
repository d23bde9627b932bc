package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/podushkina/notifyqueue/internal/job"
	"github.com/podushkina/notifyqueue/internal/store"
)

var (
	ErrNotFound    = errors.New("job not found")
	ErrNotTerminal = errors.New("job is still pending or processing")
	ErrNotFailed   = errors.New("only failed jobs can be retried")
)

// Queue is the producer side of the dispatch pipeline. Enqueue only stores a
// record; delivery happens later on the dispatcher's loop.
type Queue struct {
	store      store.Store
	maxRetries int
	now        func() time.Time
	ready      chan struct{}
}

type Option func(*Queue)

// WithDefaultMaxRetries sets the retry ceiling used when Enqueue gets none.
func WithDefaultMaxRetries(n int) Option {
	return func(q *Queue) {
		if n >= 0 {
			q.maxRetries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func New(s store.Store, opts ...Option) *Queue {
	q := &Queue{
		store:      s,
		maxRetries: job.DefaultMaxRetries,
		now:        time.Now,
		ready:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) Store() store.Store { return q.store }

func (q *Queue) Now() time.Time { return q.now() }

// Ready fires after an enqueue so the dispatcher need not wait for its next poll.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

type Request struct {
	Type    job.Type
	Payload any
	// MaxRetries overrides the queue default when non-nil.
	MaxRetries *int
}

type EnqueueOption func(*Request)

func WithMaxRetries(n int) EnqueueOption {
	return func(r *Request) { r.MaxRetries = &n }
}

func (q *Queue) Enqueue(ctx context.Context, jobType job.Type, payload any, opts ...EnqueueOption) (string, error) {
	req := Request{Type: jobType, Payload: payload}
	for _, opt := range opts {
		opt(&req)
	}
	return q.enqueue(ctx, req)
}

// EnqueueMany stores the requests in order and returns their ids. It stops at
// the first failure, returning the ids stored so far.
func (q *Queue) EnqueueMany(ctx context.Context, reqs []Request) ([]string, error) {
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		id, err := q.enqueue(ctx, req)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (q *Queue) enqueue(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	maxRetries := q.maxRetries
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = *req.MaxRetries
	}

	now := q.now()
	j := &job.Job{
		ID:         job.NewID(now),
		Type:       req.Type,
		Payload:    payload,
		Status:     job.StatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
	}

	if err := q.store.Add(ctx, j); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	q.wake()
	return j.ID, nil
}

func (q *Queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue) Get(ctx context.Context, id string) (*job.Job, error) {
	return q.store.Get(ctx, id)
}

// List returns every record, newest first.
func (q *Queue) List(ctx context.Context) ([]*job.Job, error) {
	jobs, err := q.store.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	return jobs, nil
}

func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	jobs, err := q.store.All(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range jobs {
		if j.Status == job.StatusPending {
			n++
		}
	}
	return n, nil
}

// Delete prunes a terminal job. Pending and processing jobs are left alone.
func (q *Queue) Delete(ctx context.Context, id string) error {
	j, err := q.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if j == nil {
		return ErrNotFound
	}
	if !j.Status.Terminal() {
		return ErrNotTerminal
	}
	return q.store.Delete(ctx, id)
}

// Retry puts a failed job back in line with a fresh retry budget.
func (q *Queue) Retry(ctx context.Context, id string) (*job.Job, error) {
	j, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, ErrNotFound
	}
	if j.Status != job.StatusFailed {
		return nil, ErrNotFailed
	}

	j.Status = job.StatusPending
	j.RetryCount = 0
	j.Error = ""
	if err := q.store.Update(ctx, j); err != nil {
		return nil, fmt.Errorf("retry job: %w", err)
	}

	q.wake()
	return j, nil
}
