package queue

import (
	"context"
	"time"

	"github.com/podushkina/notifyqueue/internal/job"
)

type Summary struct {
	ID        string     `json:"id"`
	Type      job.Type   `json:"type"`
	Status    job.Status `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	Error     string     `json:"error,omitempty"`
}

type Stats struct {
	TotalJobs   int       `json:"totalJobs"`
	PendingJobs int       `json:"pendingJobs"`
	RecentJobs  []Summary `json:"recentJobs"`
}

// Stats summarizes the store, listing at most recent jobs by creation time.
func (q *Queue) Stats(ctx context.Context, recent int) (Stats, error) {
	jobs, err := q.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{TotalJobs: len(jobs), RecentJobs: []Summary{}}
	for _, j := range jobs {
		if j.Status == job.StatusPending {
			st.PendingJobs++
		}
	}

	if recent < 0 {
		recent = 0
	}
	if recent > len(jobs) {
		recent = len(jobs)
	}
	for _, j := range jobs[:recent] {
		st.RecentJobs = append(st.RecentJobs, Summary{
			ID:        j.ID,
			Type:      j.Type,
			Status:    j.Status,
			CreatedAt: j.CreatedAt,
			Error:     j.Error,
		})
	}
	return st, nil
}
