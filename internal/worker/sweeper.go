package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/podushkina/notifyqueue/internal/job"
	"github.com/podushkina/notifyqueue/internal/queue"
	"github.com/podushkina/notifyqueue/internal/store"
)

const (
	DefaultSweepInterval = 10 * time.Minute
	DefaultRetention     = time.Hour
)

// Sweeper deletes completed jobs once they age past the retention window.
// Failed jobs are kept for operators.
type Sweeper struct {
	queue     *queue.Queue
	store     store.Store
	interval  time.Duration
	retention time.Duration
	wg        sync.WaitGroup
}

func NewSweeper(q *queue.Queue, interval, retention time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{
		queue:     q,
		store:     q.Store(),
		interval:  interval,
		retention: retention,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
					log.Printf("sweeper: %v", err)
				}
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	s.wg.Wait()
}

// Sweep removes expired completed jobs and returns how many it removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	jobs, err := s.store.All(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.queue.Now().Add(-s.retention)
	removed := 0
	for _, j := range jobs {
		if j.Status != job.StatusCompleted || j.ProcessedAt == nil || !j.ProcessedAt.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, j.ID); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		log.Printf("sweeper: removed %d completed jobs", removed)
	}
	return removed, nil
}
