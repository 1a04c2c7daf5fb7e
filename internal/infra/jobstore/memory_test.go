package jobstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/repo-analyzer-api/internal/domain/jobs"
)

func newJob(t *testing.T, id domain.ID) *domain.Job {
	t.Helper()
	j, err := domain.New(id, "https://example.com/r.git", "main", time.Now())
	require.NoError(t, err)
	return j
}

func TestCreateAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job := newJob(t, "a")
	require.NoError(t, m.Create(ctx, job))

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, job.RepoURL, got.RepoURL)

	// Stored copy is isolated from later caller mutation.
	job.Message = "mutated"
	got2, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Analysis has been queued", got2.Message)
}

func TestCreateDuplicate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, newJob(t, "a")))
	require.Error(t, m.Create(ctx, newJob(t, "a")))
}

func TestGetUnknown(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateUnknown(t *testing.T) {
	m := NewMemory()

	err := m.Update(context.Background(), newJob(t, "nope"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateTerminalJobRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	job := newJob(t, "a")
	require.NoError(t, m.Create(ctx, job))
	require.NoError(t, job.Start(now))
	require.NoError(t, job.Complete("done", now))
	require.NoError(t, m.Update(ctx, job))

	// Any further write against the terminal row must be refused.
	stale := *job
	stale.Message = "rewriting history"
	require.ErrorIs(t, m.Update(ctx, &stale), domain.ErrInvalidTransition)
}

func TestConcurrentReadersSeeConsistentJob(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job := newJob(t, "a")
	require.NoError(t, m.Create(ctx, job))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Single writer walks the job to completion.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(stop)
		now := time.Now()
		assert.NoError(t, job.Start(now))
		assert.NoError(t, m.Update(ctx, job))
		for p := 10; p <= 90; p += 10 {
			assert.NoError(t, job.Report(p, "working", now))
			assert.NoError(t, m.Update(ctx, job))
		}
		assert.NoError(t, job.Complete("done", now))
		assert.NoError(t, m.Update(ctx, job))
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got, err := m.Get(ctx, "a")
				if err != nil {
					return
				}
				// A torn status/progress pair must never be visible.
				if got.Status == domain.StatusCompleted {
					assert.Equal(t, 100, got.Progress)
				}
			}
		}()
	}

	wg.Wait()

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
}
