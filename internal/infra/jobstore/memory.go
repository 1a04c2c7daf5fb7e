// Package jobstore provides an in-memory jobs.Repository used in development
// mode and tests. Jobs do not survive a restart; production deployments use
// the mysql or postgres repository instead.
package jobstore

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/bryanwahyu/repo-analyzer-api/internal/domain/jobs"
)

type Memory struct {
	mu   sync.RWMutex
	jobs map[domain.ID]domain.Job
}

func NewMemory() *Memory {
	return &Memory{jobs: make(map[domain.ID]domain.Job)}
}

func (m *Memory) Create(ctx context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; ok {
		return fmt.Errorf("job %s already exists", j.ID)
	}
	m.jobs[j.ID] = *j
	return nil
}

func (m *Memory) Get(ctx context.Context, id domain.ID) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	// Return a copy so readers never share the stored value.
	out := j
	return &out, nil
}

// Update replaces the stored job in one critical section, so a concurrent Get
// never sees a half-applied status/progress pair. Terminal rows stay as-is.
func (m *Memory) Update(ctx context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.jobs[j.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status.Terminal() {
		return fmt.Errorf("job %s: %w", j.ID, domain.ErrInvalidTransition)
	}
	m.jobs[j.ID] = *j
	return nil
}
