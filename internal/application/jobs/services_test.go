package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/repo-analyzer-api/internal/application"
	"github.com/bryanwahyu/repo-analyzer-api/internal/domain/artifacts"
	domain "github.com/bryanwahyu/repo-analyzer-api/internal/domain/jobs"
	"github.com/bryanwahyu/repo-analyzer-api/internal/infra/jobstore"
)

type fakeStore struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeStore) Put(ctx context.Context, req artifacts.PutRequest) error { return nil }

func (f *fakeStore) PutFile(ctx context.Context, bucket, key, localPath, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeStore) PublicURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// stubRunner writes a report file the way the git runner does, or fails.
type stubRunner struct {
	fail bool
}

func (r *stubRunner) Run(ctx context.Context, req domain.RunRequest, report domain.ProgressFunc) (domain.RunResult, error) {
	if r.fail {
		return domain.RunResult{}, fmt.Errorf("git clone: repository not found")
	}
	report(50, "Scanning repository")

	dir, err := os.MkdirTemp("", "jobs-test-*")
	if err != nil {
		return domain.RunResult{}, err
	}
	path := filepath.Join(dir, "analysis.json")
	if err := os.WriteFile(path, []byte(`{"files":1}`), 0o644); err != nil {
		return domain.RunResult{}, err
	}
	return domain.RunResult{LocalReportPath: path, RawFormat: "json", DurationMS: 5}, nil
}

func newService(t *testing.T, runner domain.Runner) (*Service, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	svc := &Service{
		Repo:      jobstore.NewMemory(),
		Runner:    runner,
		Artifacts: store,
		Clock:     application.SystemClock{},
		Bucket:    "repo-analyzer",
		Region:    "eu-central-1",
	}
	svc.Start(1)
	t.Cleanup(svc.Stop)
	return svc, store
}

func TestEnqueueRequiresRepoURL(t *testing.T) {
	svc, _ := newService(t, &stubRunner{})

	_, err := svc.Enqueue(context.Background(), "", "")
	require.ErrorIs(t, err, domain.ErrEmptyRepoURL)
}

func TestEnqueueReturnsQueuedJobWithUniqueID(t *testing.T) {
	svc, _ := newService(t, &stubRunner{fail: true})

	seen := make(map[domain.ID]struct{})
	for i := 0; i < 10; i++ {
		job, err := svc.Enqueue(context.Background(), "https://example.com/r.git", "main")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusQueued, job.Status)
		assert.Equal(t, "Analysis has been queued", job.Message)

		_, err = uuid.Parse(string(job.ID))
		require.NoError(t, err, "job id must be a UUID")

		_, dup := seen[job.ID]
		require.False(t, dup)
		seen[job.ID] = struct{}{}
	}
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _ := newService(t, &stubRunner{})

	_, err := svc.Status(context.Background(), "no-such-job")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWorkerCompletesJob(t *testing.T) {
	svc, store := newService(t, &stubRunner{})

	job, err := svc.Enqueue(context.Background(), "https://example.com/r.git", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := svc.Status(context.Background(), job.ID)
		return err == nil && got.Status == domain.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	got, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
	assert.Contains(t, got.Message, "Analysis complete:")
	assert.Contains(t, got.Message, string(job.ID))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.keys, 1)
	assert.Equal(t, fmt.Sprintf("reports/%s/analysis.json", job.ID), store.keys[0])
}

func TestWorkerFailsJob(t *testing.T) {
	svc, store := newService(t, &stubRunner{fail: true})

	job, err := svc.Enqueue(context.Background(), "https://example.com/missing.git", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := svc.Status(context.Background(), job.ID)
		return err == nil && got.Status == domain.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	got, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Message, "Analysis failed")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.keys, "failed runs must not upload a report")
}

// ctxRepo refuses work once the context is dead, the way database/sql
// ExecContext does.
type ctxRepo struct {
	inner domain.Repository
}

func (r *ctxRepo) Create(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.inner.Create(ctx, job)
}

func (r *ctxRepo) Get(ctx context.Context, id domain.ID) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.inner.Get(ctx, id)
}

func (r *ctxRepo) Update(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.inner.Update(ctx, job)
}

// hangRunner blocks until the job context expires, like a clone that never
// returns.
type hangRunner struct{}

func (hangRunner) Run(ctx context.Context, req domain.RunRequest, report domain.ProgressFunc) (domain.RunResult, error) {
	<-ctx.Done()
	return domain.RunResult{}, ctx.Err()
}

func TestWorkerTimeoutStillReachesFailed(t *testing.T) {
	svc := &Service{
		Repo:       &ctxRepo{inner: jobstore.NewMemory()},
		Runner:     hangRunner{},
		Artifacts:  &fakeStore{},
		Clock:      application.SystemClock{},
		Bucket:     "repo-analyzer",
		Region:     "eu-central-1",
		JobTimeout: 50 * time.Millisecond,
	}
	svc.Start(1)
	t.Cleanup(svc.Stop)

	job, err := svc.Enqueue(context.Background(), "https://example.com/hung.git", "")
	require.NoError(t, err)

	// The failed state must be persisted even though the job context that
	// killed the runner is already expired.
	require.Eventually(t, func() bool {
		got, err := svc.Status(context.Background(), job.ID)
		return err == nil && got.Status == domain.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	got, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Message, "Analysis failed")
}

// blockFirstRunner parks the worker on its first job until released; later
// jobs fail immediately.
type blockFirstRunner struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (r *blockFirstRunner) Run(ctx context.Context, req domain.RunRequest, report domain.ProgressFunc) (domain.RunResult, error) {
	r.mu.Lock()
	r.calls++
	first := r.calls == 1
	r.mu.Unlock()
	if first {
		close(r.started)
		select {
		case <-r.release:
		case <-ctx.Done():
		}
	}
	return domain.RunResult{}, fmt.Errorf("no analysis produced")
}

func TestStopWithPendingOverflowHandoff(t *testing.T) {
	runner := &blockFirstRunner{started: make(chan struct{}), release: make(chan struct{})}
	svc := &Service{
		Repo:      jobstore.NewMemory(),
		Runner:    runner,
		Artifacts: &fakeStore{},
		Clock:     application.SystemClock{},
		Bucket:    "repo-analyzer",
		Region:    "eu-central-1",
	}
	svc.Start(1)

	// Park the single worker, then fill the queue buffer so the next
	// Enqueue has to hand off from a goroutine.
	_, err := svc.Enqueue(context.Background(), "https://example.com/r.git", "")
	require.NoError(t, err)
	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first job")
	}
	for i := 0; i < 128; i++ {
		_, err := svc.Enqueue(context.Background(), "https://example.com/r.git", "")
		require.NoError(t, err)
	}
	_, err = svc.Enqueue(context.Background(), "https://example.com/overflow.git", "")
	require.NoError(t, err)

	// Stopping while that handoff is still blocked sending must not panic
	// the process.
	stopped := make(chan struct{})
	go func() {
		svc.Stop()
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond)
	close(runner.release)

	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	svc := &Service{
		Repo:      jobstore.NewMemory(),
		Runner:    &stubRunner{},
		Artifacts: &fakeStore{},
		Clock:     application.SystemClock{},
	}

	_, err := svc.Enqueue(context.Background(), "https://example.com/r.git", "")
	require.Error(t, err)
}

func TestStatusNeverObservesTornState(t *testing.T) {
	svc, _ := newService(t, &stubRunner{})

	job, err := svc.Enqueue(context.Background(), "https://example.com/r.git", "")
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := svc.Status(context.Background(), job.ID)
		require.NoError(t, err)
		if got.Status == domain.StatusCompleted {
			require.Equal(t, 100, got.Progress)
			return
		}
	}
	t.Fatal("job never completed")
}
