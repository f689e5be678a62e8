package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"brand-catalog-service/internal/domain"
)

const (
	jobColumns = `id, user_id, brand_id, job_type, status, progress_percent, progress_message,
		input_data, output_data, error_data, created_at, updated_at, completed_at`

	getJobQuery = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`

	jobExistsQuery = `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1);`

	cancelJobQuery = `
		UPDATE jobs
		SET status = 'cancelled', completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('pending', 'processing')
		RETURNING ` + jobColumns + `;`

	retryJobQuery = `
		UPDATE jobs
		SET status = 'pending', progress_percent = 0, progress_message = NULL, error_data = NULL,
			completed_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ('failed', 'cancelled')
		RETURNING ` + jobColumns + `;`

	deleteCompletedJobsQuery = `DELETE FROM jobs WHERE user_id = $1 AND status = 'completed';`

	defaultJobListLimit = 50
)

// --- JobStorer Implementation ---

func (s *PostgresStore) ListJobs(ctx context.Context, params ListJobsParams) ([]domain.Job, error) {
	whereClauses := []string{"user_id = $1"}
	args := []any{params.UserID}
	argID := 2

	if params.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argID))
		args = append(args, string(*params.Status))
		argID++
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE %s ORDER BY created_at DESC LIMIT $%d;",
		jobColumns, strings.Join(whereClauses, " AND "), argID)
	args = append(args, limit)

	jobs := []domain.Job{}
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("store: ListJobs failed to query jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	if err := s.db.GetContext(ctx, &job, getJobQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("store: GetJob failed to scan row: %w", err)
	}
	return &job, nil
}

// CancelJob moves a pending or processing job to cancelled.
func (s *PostgresStore) CancelJob(ctx context.Context, id string) (*domain.Job, error) {
	return s.transitionJob(ctx, "CancelJob", cancelJobQuery, id)
}

// RetryJob puts a failed or cancelled job back to pending with its progress cleared.
func (s *PostgresStore) RetryJob(ctx context.Context, id string) (*domain.Job, error) {
	return s.transitionJob(ctx, "RetryJob", retryJobQuery, id)
}

// transitionJob runs a guarded status update. When the guard rejects the row, a
// follow-up existence probe tells a missing job apart from one in the wrong state.
func (s *PostgresStore) transitionJob(ctx context.Context, op, query, id string) (*domain.Job, error) {
	var job domain.Job
	err := s.db.QueryRowxContext(ctx, query, id).StructScan(&job)
	if err == nil {
		return &job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: %s failed to scan row: %w", op, err)
	}
	var exists bool
	if err := s.db.GetContext(ctx, &exists, jobExistsQuery, id); err != nil {
		return nil, fmt.Errorf("store: %s failed to check job existence: %w", op, err)
	}
	if !exists {
		return nil, ErrJobNotFound
	}
	return nil, ErrJobStateConflict
}

func (s *PostgresStore) DeleteCompletedJobs(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, deleteCompletedJobsQuery, userID)
	if err != nil {
		return 0, fmt.Errorf("store: DeleteCompletedJobs failed to execute delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: DeleteCompletedJobs failed to get rows affected: %w", err)
	}
	return n, nil
}
