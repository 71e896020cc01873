package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
)

// Ensure IngestJobStore implements the interface.
var _ driven.IngestJobStore = (*IngestJobStore)(nil)

// IngestJobStore is an in-memory implementation of driven.IngestJobStore.
type IngestJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.IngestJob
}

// NewIngestJobStore creates a new in-memory job store.
func NewIngestJobStore() *IngestJobStore {
	return &IngestJobStore{jobs: make(map[string]domain.IngestJob)}
}

// SaveJob inserts or updates a job.
func (s *IngestJobStore) SaveJob(_ context.Context, job *domain.IngestJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// GetJob retrieves a job by ID.
func (s *IngestJobStore) GetJob(_ context.Context, id string) (*domain.IngestJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// ListJobs returns the most recent jobs first.
func (s *IngestJobStore) ListJobs(_ context.Context, limit int) ([]domain.IngestJob, error) {
	s.mu.RLock()
	jobs := make([]domain.IngestJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *IngestJobStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
