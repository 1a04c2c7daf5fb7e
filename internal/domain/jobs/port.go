package jobs

import "context"

// Repository port (interface untuk persistence)
//
// Implementations must apply Create/Update as single indivisible writes so a
// concurrent Get never observes a torn status/progress combination. Only one
// writer per job id is expected (the worker that owns the job).
type Repository interface {
	Create(ctx context.Context, j *Job) error
	Get(ctx context.Context, id ID) (*Job, error)
	Update(ctx context.Context, j *Job) error
}

// ProgressFunc lets a Runner report progress while it works.
type ProgressFunc func(progress int, message string)

// Runner port (interface untuk eksekusi analysis)
type Runner interface {
	Run(ctx context.Context, req RunRequest, report ProgressFunc) (RunResult, error)
}
