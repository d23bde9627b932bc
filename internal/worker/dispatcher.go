package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/podushkina/notifyqueue/internal/job"
	"github.com/podushkina/notifyqueue/internal/queue"
	"github.com/podushkina/notifyqueue/internal/store"
)

type Handler func(ctx context.Context, j *job.Job) error

var ErrUnknownType = errors.New("unknown job type")

const DefaultPollInterval = 100 * time.Millisecond

// Dispatcher runs a single consumer loop over the queue's store. It moves one
// pending job per tick through processing into completed, pending or failed.
type Dispatcher struct {
	queue    *queue.Queue
	store    store.Store
	interval time.Duration

	mu       sync.RWMutex
	handlers map[job.Type]Handler

	busy atomic.Bool
	wg   sync.WaitGroup
}

func NewDispatcher(q *queue.Queue, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Dispatcher{
		queue:    q,
		store:    q.Store(),
		interval: interval,
		handlers: make(map[job.Type]Handler),
	}
}

func (d *Dispatcher) Register(jobType job.Type, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[jobType] = handler
}

// Start requeues orphaned jobs and launches the dispatch loop. It runs until
// ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	if n, err := d.Recover(ctx); err != nil {
		log.Printf("dispatcher: recover error: %v", err)
	} else if n > 0 {
		log.Printf("dispatcher: requeued %d jobs left processing by a previous run", n)
	}

	d.wg.Add(1)
	go d.run(ctx)
	log.Printf("dispatcher: started, polling every %s", d.interval)
}

// Stop waits for the loop to exit after its context is cancelled.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
	log.Println("dispatcher: stopped")
}

// Recover puts every processing job back to pending. A store has a single
// consumer, so before the loop starts any such job was abandoned by a crash.
func (d *Dispatcher) Recover(ctx context.Context) (int, error) {
	jobs, err := d.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan jobs: %w", err)
	}

	n := 0
	for _, j := range jobs {
		if j.Status != job.StatusProcessing {
			continue
		}
		j.Status = job.StatusPending
		if err := d.store.Update(ctx, j); err != nil {
			return n, fmt.Errorf("requeue job %s: %w", j.ID, err)
		}
		n++
	}
	return n, nil
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.queue.Ready():
		}
		if ctx.Err() != nil {
			return
		}

		if _, err := d.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("dispatcher: tick error: %v", err)
		}
	}
}

// Tick advances at most one pending job and reports whether it did. A tick
// that starts while another is in flight does nothing.
func (d *Dispatcher) Tick(ctx context.Context) (bool, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return false, nil
	}
	defer d.busy.Store(false)

	jobs, err := d.store.All(ctx)
	if err != nil {
		return false, fmt.Errorf("scan jobs: %w", err)
	}

	j := oldestPending(jobs)
	if j == nil {
		return false, nil
	}

	now := d.queue.Now()
	j.Status = job.StatusProcessing
	j.ProcessedAt = &now
	if err := d.store.Update(ctx, j); err != nil {
		return false, fmt.Errorf("claim job %s: %w", j.ID, err)
	}

	d.finish(ctx, j, d.execute(ctx, j))
	return true, nil
}

func (d *Dispatcher) execute(ctx context.Context, j *job.Job) (err error) {
	d.mu.RLock()
	handler, ok := d.handlers[j.Type]
	d.mu.RUnlock()

	if !ok {
		return job.Permanent(fmt.Errorf("%w: %s", ErrUnknownType, j.Type))
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, j)
}

func (d *Dispatcher) finish(ctx context.Context, j *job.Job, err error) {
	switch {
	case err == nil:
		j.Status = job.StatusCompleted
		log.Printf("dispatcher: job %s (%s) completed", j.ID, j.Type)
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		// interrupted by our own shutdown, not rejected by the handler
		j.Status = job.StatusPending
		log.Printf("dispatcher: job %s (%s) interrupted by shutdown, requeued", j.ID, j.Type)
	case job.IsPermanent(err):
		j.Status = job.StatusFailed
		j.Error = err.Error()
		log.Printf("dispatcher: job %s (%s) failed permanently: %v", j.ID, j.Type, err)
	case j.RetryCount < j.MaxRetries:
		j.RetryCount++
		j.Status = job.StatusPending
		j.Error = err.Error()
		log.Printf("dispatcher: job %s (%s) attempt failed, retry %d/%d: %v",
			j.ID, j.Type, j.RetryCount, j.MaxRetries, err)
	default:
		j.Status = job.StatusFailed
		j.Error = err.Error()
		log.Printf("dispatcher: job %s (%s) failed after %d retries: %v", j.ID, j.Type, j.RetryCount, err)
	}

	// the outcome must be recorded even if shutdown cancelled the handler
	if err := d.store.Update(context.WithoutCancel(ctx), j); err != nil {
		log.Printf("dispatcher: update job %s: %v", j.ID, err)
	}
}

// oldestPending picks the earliest created pending job; ties keep store order.
func oldestPending(jobs []*job.Job) *job.Job {
	var oldest *job.Job
	for _, j := range jobs {
		if j.Status != job.StatusPending {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	return oldest
}
