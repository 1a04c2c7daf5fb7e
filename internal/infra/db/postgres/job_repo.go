package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/repo-analyzer-api/internal/domain/jobs"
)

type JobRepository struct{ db *sql.DB }

func NewJobRepository(db *sql.DB) *JobRepository { return &JobRepository{db: db} }

// Create insert Job record baru
func (r *JobRepository) Create(ctx context.Context, j *domain.Job) error {
	const q = `
INSERT INTO analysis_jobs
(id, repo_url, branch, status, progress, message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err := r.db.ExecContext(ctx, q,
		j.ID, j.RepoURL, j.Branch, j.Status, j.Progress, j.Message,
		j.CreatedAt, j.UpdatedAt,
	)
	return err
}

// Get by ID
func (r *JobRepository) Get(ctx context.Context, id domain.ID) (*domain.Job, error) {
	const q = `
SELECT id, repo_url, branch, status, progress, message, created_at, updated_at
FROM analysis_jobs
WHERE id=$1 LIMIT 1;`

	row := r.db.QueryRowContext(ctx, q, id)

	var j domain.Job
	if err := row.Scan(
		&j.ID, &j.RepoURL, &j.Branch, &j.Status, &j.Progress, &j.Message,
		&j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

// Update persists a lifecycle change as one statement; terminal rows stay
// immutable via the status guard.
func (r *JobRepository) Update(ctx context.Context, j *domain.Job) error {
	const q = `
UPDATE analysis_jobs
SET status=$1, progress=$2, message=$3, updated_at=$4
WHERE id=$5 AND status IN ('queued','in_progress');`

	res, err := r.db.ExecContext(ctx, q,
		j.Status, j.Progress, j.Message, j.UpdatedAt, j.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", j.ID, domain.ErrInvalidTransition)
	}
	return nil
}
