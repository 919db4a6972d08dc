package repository

import (
	"context"
	"sort"
	"sync"

	"climate-odds/internal/models"
)

// MemoryJobRepository is a concurrency-safe in-memory JobRepository. It backs
// the one-shot CLI and the service tests; the server uses Postgres.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]models.AnalyzeJob
	seq  map[string]int // insertion order, tie-breaker for equal timestamps
	next int
}

// NewMemoryJobRepository creates an empty in-memory repository.
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{
		jobs: make(map[string]models.AnalyzeJob),
		seq:  make(map[string]int),
	}
}

// Create stores a copy of the job. The caller keeps no live alias into the
// store; all later access goes through GetByID/Update.
func (m *MemoryJobRepository) Create(_ context.Context, job *models.AnalyzeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[job.ID] = *job
	m.seq[job.ID] = m.next
	m.next++
	return nil
}

// GetByID returns a copy of the stored job.
func (m *MemoryJobRepository) GetByID(_ context.Context, id string) (*models.AnalyzeJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, &NotFoundError{Resource: "analyze_job", ID: id}
	}
	out := job
	return &out, nil
}

// Update applies a terminal outcome to a still-running job, at most once.
func (m *MemoryJobRepository) Update(_ context.Context, id string, outcome models.JobOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != models.StatusRunning {
		return &NotFoundError{Resource: "running analyze_job", ID: id}
	}

	job.Status = outcome.Status
	job.Result = outcome.Result
	job.ResultHash = outcome.ResultHash
	duration := outcome.DurationMs
	job.DurationMs = &duration
	status := outcome.ResponseStatus
	job.ResponseStatus = &status

	m.jobs[id] = job
	return nil
}

// ListByOwner returns one owner's jobs newest first plus the total count.
func (m *MemoryJobRepository) ListByOwner(_ context.Context, userID string, limit, offset int) ([]*models.AnalyzeJob, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var owned []models.AnalyzeJob
	for _, job := range m.jobs {
		if job.UserID == userID {
			owned = append(owned, job)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return m.seq[owned[i].ID] > m.seq[owned[j].ID]
	})

	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*models.AnalyzeJob, 0, end-offset)
	for i := offset; i < end; i++ {
		job := owned[i]
		page = append(page, &job)
	}

	return page, total, nil
}

// HealthCheck always succeeds for the in-memory store.
func (m *MemoryJobRepository) HealthCheck(_ context.Context) error {
	return nil
}
