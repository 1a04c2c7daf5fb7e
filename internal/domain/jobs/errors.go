package jobs

import "errors"

var (
	// ErrNotFound indicates no job exists for the requested id.
	ErrNotFound = errors.New("job not found")

	// ErrEmptyRepoURL indicates an analyze request without a repository URL.
	ErrEmptyRepoURL = errors.New("repository URL is required")

	// ErrInvalidTransition indicates a state change the job lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid job transition")
)
