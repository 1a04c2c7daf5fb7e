package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/repo-analyzer-api/internal/application"
	domai "github.com/bryanwahyu/repo-analyzer-api/internal/domain/ai"
	"github.com/bryanwahyu/repo-analyzer-api/internal/domain/artifacts"
	domain "github.com/bryanwahyu/repo-analyzer-api/internal/domain/jobs"
	"github.com/bryanwahyu/repo-analyzer-api/internal/middleware"
)

const defaultJobTimeout = 10 * time.Minute

// Service owns job identity, the queued -> in_progress -> {completed, failed}
// lifecycle, and status lookups. Analysis itself runs on a worker pool that
// consumes a buffered handoff channel; Enqueue never blocks on execution.
type Service struct {
	Repo       domain.Repository
	Runner     domain.Runner
	Artifacts  artifacts.Store
	Summarizer domai.Summarizer // optional, nil disables summaries
	Clock      application.Clock

	// Bucket/Region locate analysis reports written by workers.
	Bucket     string
	Region     string
	JobTimeout time.Duration

	queue chan domain.ID
	done  chan struct{}
	wg    sync.WaitGroup
}

// Start spins up the worker pool. Workers drain the queue until Stop.
func (s *Service) Start(workers int) {
	if workers <= 0 {
		workers = 2
	}
	s.queue = make(chan domain.ID, 128)
	s.done = make(chan struct{})
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case id := <-s.queue:
					s.process(id)
				case <-s.done:
					// finish the backlog, then exit
					for {
						select {
						case id := <-s.queue:
							s.process(id)
						default:
							return
						}
					}
				}
			}
		}()
	}
}

// Stop signals the workers and waits for in-flight jobs to finish. The queue
// is never closed; overflow handoffs may still be sending to it.
func (s *Service) Stop() {
	if s.done == nil {
		return
	}
	close(s.done)
	s.wg.Wait()
}

// Enqueue validates the request, persists a queued Job and hands it to the
// worker pool. Returns immediately; the caller answers 202.
func (s *Service) Enqueue(ctx context.Context, repoURL, branch string) (*domain.Job, error) {
	if s.queue == nil {
		return nil, errors.New("job workers not started")
	}
	job, err := domain.New(domain.ID(uuid.New().String()), repoURL, branch, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	// Handoff must not block the request even when the queue is full; the
	// job is already durable, so push from a goroutine in that case.
	select {
	case s.queue <- job.ID:
	default:
		go func(id domain.ID) {
			select {
			case s.queue <- id:
			case <-s.done:
			}
		}(job.ID)
	}
	return job, nil
}

// Status looks up a job by id. Unknown ids surface domain.ErrNotFound.
func (s *Service) Status(ctx context.Context, id domain.ID) (*domain.Job, error) {
	return s.Repo.Get(ctx, id)
}

// process runs one job to a terminal state. Pakai context.Background() supaya
// gak kena context canceled dari request yang sudah selesai.
func (s *Service) process(id domain.ID) {
	timeout := s.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	job, err := s.Repo.Get(ctx, id)
	if err != nil {
		log.Printf("worker: load job %s: %v", id, err)
		return
	}

	if err := job.Start(s.Clock.Now()); err != nil {
		log.Printf("worker: job %s not startable: %v", id, err)
		return
	}
	if err := s.Repo.Update(ctx, job); err != nil {
		log.Printf("worker: mark job %s in_progress: %v", id, err)
		return
	}
	middleware.IncrementJobsRunning()
	defer middleware.DecrementJobsRunning()

	report := func(progress int, message string) {
		if err := job.Report(progress, message, s.Clock.Now()); err != nil {
			log.Printf("worker: job %s progress ignored: %v", id, err)
			return
		}
		if err := s.Repo.Update(ctx, job); err != nil {
			log.Printf("worker: persist job %s progress: %v", id, err)
		}
	}

	res, err := s.Runner.Run(ctx, domain.RunRequest{RepoURL: job.RepoURL, Branch: job.Branch}, report)
	if err != nil {
		s.fail(ctx, job, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	// Upload report artifact, lalu bersihkan file lokal.
	key := fmt.Sprintf("reports/%s/%s", job.ID, filepath.Base(res.LocalReportPath))
	contentType := "application/octet-stream"
	if res.RawFormat == "json" {
		contentType = "application/json"
	}
	if err := s.Artifacts.PutFile(ctx, s.Bucket, key, res.LocalReportPath, contentType); err != nil {
		os.RemoveAll(filepath.Dir(res.LocalReportPath))
		s.fail(ctx, job, fmt.Sprintf("Failed to store analysis report: %v", err))
		return
	}
	if err := os.RemoveAll(filepath.Dir(res.LocalReportPath)); err != nil {
		log.Printf("worker: remove local report %s: %v", res.LocalReportPath, err)
	}

	url := s.Artifacts.PublicURL(s.Bucket, s.Region, key)
	message := fmt.Sprintf("Analysis complete: %s", url)

	if s.Summarizer != nil {
		// Best effort; a summary failure never fails the job.
		summary, serr := s.Summarizer.Summarize(ctx, url)
		switch {
		case errors.Is(serr, domai.ErrQuotaExceeded):
			log.Printf("worker: job %s summary skipped: %v", id, serr)
		case serr != nil:
			log.Printf("worker: job %s summary error: %v", id, serr)
		case summary != "":
			message = fmt.Sprintf("%s. Summary: %s", message, summary)
		}
	}

	if err := job.Complete(message, s.Clock.Now()); err != nil {
		log.Printf("worker: complete job %s: %v", id, err)
		return
	}
	pctx, pcancel := persistCtx(ctx)
	defer pcancel()
	if err := s.Repo.Update(pctx, job); err != nil {
		log.Printf("worker: persist job %s completion: %v", id, err)
		return
	}
	middleware.IncrementJobsCompleted()
	log.Printf("analysis finished: job=%s repo=%s artifact=%s duration_ms=%d",
		job.ID, job.RepoURL, url, res.DurationMS)
}

func (s *Service) fail(ctx context.Context, job *domain.Job, message string) {
	middleware.IncrementJobsFailed()
	if err := job.Fail(message, s.Clock.Now()); err != nil {
		log.Printf("worker: fail job %s: %v", job.ID, err)
		return
	}
	pctx, cancel := persistCtx(ctx)
	defer cancel()
	if err := s.Repo.Update(pctx, job); err != nil {
		log.Printf("worker: persist job %s failure: %v", job.ID, err)
	}
}

// persistCtx detaches from the job context so terminal states still get
// written when the job itself timed out or was cancelled.
func persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
}
