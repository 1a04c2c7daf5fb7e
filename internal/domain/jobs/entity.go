package jobs

import (
	"fmt"
	"time"
)

// ID tipe untuk Job
type ID string

// Status enum
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is legal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Aggregate Root: Job
//
// A Job tracks one asynchronous repository analysis. Status only moves
// forward: queued -> in_progress -> {completed, failed}. Progress is
// non-decreasing while in_progress and is forced to 100 on completion.
type Job struct {
	ID        ID        `json:"job_id"`
	RepoURL   string    `json:"repo_url"`
	Branch    string    `json:"branch,omitempty"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New buat Job baru dalam status queued.
func New(id ID, repoURL, branch string, now time.Time) (*Job, error) {
	if repoURL == "" {
		return nil, ErrEmptyRepoURL
	}
	return &Job{
		ID:        id,
		RepoURL:   repoURL,
		Branch:    branch,
		Status:    StatusQueued,
		Progress:  0,
		Message:   "Analysis has been queued",
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Start transitions queued -> in_progress.
func (j *Job) Start(now time.Time) error {
	if j.Status != StatusQueued {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusInProgress)
	}
	j.Status = StatusInProgress
	j.Message = "Analysis in progress"
	j.UpdatedAt = now
	return nil
}

// Report records worker progress. Only legal while in_progress, and
// progress never moves backwards.
func (j *Job) Report(progress int, message string, now time.Time) error {
	if j.Status != StatusInProgress {
		return fmt.Errorf("%w: progress update in status %s", ErrInvalidTransition, j.Status)
	}
	if progress < 0 || progress > 100 {
		return fmt.Errorf("invalid progress %d: must be 0-100", progress)
	}
	if progress < j.Progress {
		return fmt.Errorf("progress must not decrease: have %d, got %d", j.Progress, progress)
	}
	j.Progress = progress
	if message != "" {
		j.Message = message
	}
	j.UpdatedAt = now
	return nil
}

// Complete transitions in_progress -> completed and pins progress at 100.
func (j *Job) Complete(message string, now time.Time) error {
	if j.Status != StatusInProgress {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusCompleted)
	}
	j.Status = StatusCompleted
	j.Progress = 100
	if message != "" {
		j.Message = message
	}
	j.UpdatedAt = now
	return nil
}

// Fail transitions in_progress -> failed.
func (j *Job) Fail(message string, now time.Time) error {
	if j.Status != StatusInProgress {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusFailed)
	}
	j.Status = StatusFailed
	if message != "" {
		j.Message = message
	}
	j.UpdatedAt = now
	return nil
}
