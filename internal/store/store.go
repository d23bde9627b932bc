package store

import (
	"context"
	"sync"

	"github.com/podushkina/notifyqueue/internal/job"
)

// Store holds job records keyed by id. Get returns (nil, nil) for an unknown id.
type Store interface {
	Add(ctx context.Context, j *job.Job) error
	Get(ctx context.Context, id string) (*job.Job, error)
	All(ctx context.Context) ([]*job.Job, error)
	Update(ctx context.Context, j *job.Job) error
	Delete(ctx context.Context, id string) error
}

// Memory keeps records in process memory. They are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	jobs  map[string]*job.Job
	order []string
}

func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*job.Job)}
}

func (m *Memory) Add(ctx context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ID]; !ok {
		m.order = append(m.order, j.ID)
	}
	m.jobs[j.ID] = j.Clone()
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return j.Clone(), nil
}

// All returns records in insertion order.
func (m *Memory) All(ctx context.Context) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*job.Job, 0, len(m.order))
	for _, id := range m.order {
		jobs = append(jobs, m.jobs[id].Clone())
	}
	return jobs, nil
}

func (m *Memory) Update(ctx context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ID]; !ok {
		m.order = append(m.order, j.ID)
	}
	m.jobs[j.ID] = j.Clone()
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return nil
	}
	delete(m.jobs, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
