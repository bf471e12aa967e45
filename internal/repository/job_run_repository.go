package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// JobRunRepository records which period a scheduled job has already run for,
// so restarts and extra instances do not repeat it.
type JobRunRepository struct {
	db *sql.DB
}

func NewJobRunRepository(db *sql.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// Claim reports true only for the first caller for (job, period).
func (r *JobRunRepository) Claim(ctx context.Context, job string, period string, now time.Time) (bool, error) {
	const query = `
		INSERT INTO job_runs (job, period, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job, period) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, job, period, now)
	if err != nil {
		return false, fmt.Errorf("claim job run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job run: %w", err)
	}
	return n == 1, nil
}

// Prune deletes claims started before cutoff and returns how many it removed.
func (r *JobRunRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM job_runs WHERE started_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune job runs: %w", err)
	}
	return res.RowsAffected()
}
