package store

import (
	"cmp"
	"context"
	"slices"

	"brand-catalog-service/internal/domain"
	"brand-catalog-service/internal/ownership"
)

// PutJob inserts or replaces a job record, standing in for the external worker.
func (s *MemoryStore) PutJob(job domain.Job) {
	s.mu.Lock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.now()
	}
	job.UpdatedAt = s.now()
	s.jobs[job.ID] = job
	observer := s.jobObserver
	s.mu.Unlock()
	if observer != nil {
		observer(job)
	}
}

// SetJobObserver registers fn to receive every job change. It plays the part
// of the database notification channel when running without Postgres.
func (s *MemoryStore) SetJobObserver(fn func(domain.Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobObserver = fn
}

func (s *MemoryStore) ListJobs(_ context.Context, params ListJobsParams) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Job{}
	for _, j := range s.jobs {
		if j.UserID != params.UserID {
			continue
		}
		if params.Status != nil && j.Status != *params.Status {
			continue
		}
		out = append(out, j)
	}
	slices.SortFunc(out, func(a, b domain.Job) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	limit := params.Limit
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &j, nil
}

func (s *MemoryStore) CancelJob(_ context.Context, id string) (*domain.Job, error) {
	return s.transitionJob(id, domain.JobStatus.Cancellable, func(j *domain.Job) {
		now := s.now()
		j.Status = domain.JobStatusCancelled
		j.CompletedAt = &now
	})
}

func (s *MemoryStore) RetryJob(_ context.Context, id string) (*domain.Job, error) {
	return s.transitionJob(id, domain.JobStatus.Retryable, func(j *domain.Job) {
		j.Status = domain.JobStatusPending
		j.ProgressPercent = 0
		j.ProgressMessage = nil
		j.ErrorData = nil
		j.CompletedAt = nil
	})
}

func (s *MemoryStore) transitionJob(id string, allowed func(domain.JobStatus) bool, apply func(*domain.Job)) (*domain.Job, error) {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrJobNotFound
	}
	if !allowed(j.Status) {
		s.mu.Unlock()
		return nil, ErrJobStateConflict
	}
	apply(&j)
	j.UpdatedAt = s.now()
	s.jobs[id] = j
	observer := s.jobObserver
	s.mu.Unlock()
	if observer != nil {
		observer(j)
	}
	return &j, nil
}

func (s *MemoryStore) DeleteCompletedJobs(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, j := range s.jobs {
		if j.UserID == userID && j.Status == domain.JobStatusCompleted {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

// --- ownership.Lookup ---

func (s *MemoryStore) BrandRoot(_ context.Context, brandID int64) (ownership.BrandRoot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.brands[brandID]
	if !ok {
		return ownership.BrandRoot{}, false, nil
	}
	return ownership.BrandRoot{UserID: b.UserID, ProjectID: b.ProjectID}, true, nil
}

func (s *MemoryStore) ProjectOwner(_ context.Context, projectID int64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	return p.UserID, ok, nil
}

func (s *MemoryStore) CatalogBrand(_ context.Context, catalogID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.catalogs[catalogID]
	return c.BrandID, ok, nil
}

func (s *MemoryStore) CatalogIDByKey(_ context.Context, key string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.catalogs {
		if c.CatalogKey == key {
			return c.ID, true, nil
		}
	}
	return 0, false, nil
}

func (s *MemoryStore) CategoryCatalog(_ context.Context, categoryID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[categoryID]
	return c.CatalogID, ok, nil
}

func (s *MemoryStore) ProductCatalog(_ context.Context, productID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	return p.CatalogID, ok, nil
}

func (s *MemoryStore) VariantProduct(_ context.Context, variantID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variants[variantID]
	return v.ProductID, ok, nil
}

func (s *MemoryStore) AttributeProduct(_ context.Context, attributeID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attributes[attributeID]
	return a.ProductID, ok, nil
}

func (s *MemoryStore) ImageProduct(_ context.Context, imageID int64) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[imageID]
	return img.ProductID, ok, nil
}

func (s *MemoryStore) JobOwner(_ context.Context, jobID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	return j.UserID, ok, nil
}
