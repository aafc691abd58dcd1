package importjob

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists import jobs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a freshly created job.
func (r *Repository) Insert(ctx context.Context, job Job) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("importjob: repository not initialised")
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO import_jobs (id, type, status, total_records, processed, progress, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())`,
		job.ID, string(job.Type), string(job.Status), job.TotalRecords, job.Processed, job.Progress)
	return err
}

// Get loads a job snapshot by id.
func (r *Repository) Get(ctx context.Context, id string) (Job, error) {
	if r == nil || r.pool == nil {
		return Job{}, fmt.Errorf("importjob: repository not initialised")
	}
	const query = `SELECT id, type, status, total_records, processed, progress, COALESCE(error_message,''), created_at, updated_at
FROM import_jobs WHERE id = $1`
	var job Job
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Type, &job.Status, &job.TotalRecords,
		&job.Processed, &job.Progress, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrJobNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// Advance increments the processed counter and recomputes progress.
// A terminal job is left untouched.
func (r *Repository) Advance(ctx context.Context, id string, delta int) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("importjob: repository not initialised")
	}
	_, err := r.pool.Exec(ctx, `UPDATE import_jobs
SET processed = processed + $2,
    progress = LEAST(100, ROUND((processed + $2) * 100.0 / GREATEST(total_records, 1))),
    updated_at = NOW()
WHERE id = $1 AND status = 'PROCESSING'`, id, delta)
	return err
}

// Complete marks a processing job as completed with full progress.
func (r *Repository) Complete(ctx context.Context, id string) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("importjob: repository not initialised")
	}
	_, err := r.pool.Exec(ctx, `UPDATE import_jobs
SET status = 'COMPLETED', progress = 100, updated_at = NOW()
WHERE id = $1 AND status = 'PROCESSING'`, id)
	return err
}

// Fail records the error message and marks the job failed.
func (r *Repository) Fail(ctx context.Context, id, message string) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("importjob: repository not initialised")
	}
	_, err := r.pool.Exec(ctx, `UPDATE import_jobs
SET status = 'FAILED', error_message = $2, updated_at = NOW()
WHERE id = $1 AND status = 'PROCESSING'`, id, message)
	return err
}
