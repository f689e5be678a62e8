// Package jobs exposes background job records to their owners and streams
// job changes to connected clients. Workers outside this service run the jobs.
package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/metrics"
	"brand-catalog-service/internal/ownership"
	"brand-catalog-service/internal/store"
)

const maxListLimit = 200

// Service implements the job operations.
type Service struct {
	store   store.JobStorer
	owners  *ownership.Resolver
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a Service. owners must resolve against the same store.
func NewService(st store.JobStorer, owners *ownership.Resolver, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, owners: owners, logger: logger.Named("jobs"), metrics: m}
}

// List returns the caller's jobs, newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, user auth.User, status string, limit int) ([]domain.Job, error) {
	if user.ID == "" {
		return nil, ownership.ErrUnauthenticated
	}
	params := store.ListJobsParams{UserID: user.ID, Limit: min(limit, maxListLimit)}
	if status != "" {
		st := domain.JobStatus(status)
		switch st {
		case domain.JobStatusPending, domain.JobStatusProcessing, domain.JobStatusCompleted,
			domain.JobStatusFailed, domain.JobStatusCancelled:
		default:
			return nil, &catalog.ValidationError{Message: fmt.Sprintf("unknown job status %q", status)}
		}
		params.Status = &st
	}
	return s.store.ListJobs(ctx, params)
}

// Get returns one of the caller's jobs.
func (s *Service) Get(ctx context.Context, user auth.User, id string) (*domain.Job, error) {
	if err := s.owners.Job(ctx, user, id); err != nil {
		return nil, err
	}
	return s.store.GetJob(ctx, id)
}

// Cancel stops a pending or processing job.
func (s *Service) Cancel(ctx context.Context, user auth.User, id string) (*domain.Job, error) {
	return s.transition(ctx, user, id, "cancel", s.store.CancelJob)
}

// Retry re-queues a failed or cancelled job.
func (s *Service) Retry(ctx context.Context, user auth.User, id string) (*domain.Job, error) {
	return s.transition(ctx, user, id, "retry", s.store.RetryJob)
}

func (s *Service) transition(ctx context.Context, user auth.User, id, action string, fn func(context.Context, string) (*domain.Job, error)) (*domain.Job, error) {
	if err := s.owners.Job(ctx, user, id); err != nil {
		return nil, err
	}
	job, err := fn(ctx, id)
	s.metrics.ObserveJobAction(action, err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job "+action, zap.String("job_id", id), zap.String("status", string(job.Status)))
	return job, nil
}

// DeleteCompleted removes the caller's completed jobs and returns how many went.
func (s *Service) DeleteCompleted(ctx context.Context, user auth.User) (int64, error) {
	if user.ID == "" {
		return 0, ownership.ErrUnauthenticated
	}
	n, err := s.store.DeleteCompletedJobs(ctx, user.ID)
	s.metrics.ObserveJobAction("cleanup", err)
	if err != nil {
		return 0, err
	}
	s.logger.Info("completed jobs deleted", zap.String("user_id", user.ID), zap.Int64("count", n))
	return n, nil
}
