package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"artengine/internal/domain"
)

// MemoryRegistry is the in-process JobRegistry used by tests and by hosts
// running without a database.
type MemoryRegistry struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{jobs: make(map[string]*domain.Job)}
}

func (r *MemoryRegistry) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *MemoryRegistry) ClaimPending(_ context.Context) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *domain.Job
	for _, job := range r.jobs {
		if job.Status != domain.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, domain.ErrNoPendingJob
	}
	oldest.Status = domain.JobStatusRunning
	oldest.LastTouched = time.Now()
	clone := *oldest
	return &clone, nil
}

func (r *MemoryRegistry) UpdateStatus(_ context.Context, id string, status domain.JobStatus, message, detail string, errKind domain.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	job.Message = message
	job.Detail = detail
	job.ErrorKind = errKind
	job.LastTouched = time.Now()
	return nil
}

func (r *MemoryRegistry) UpdateProgress(_ context.Context, id string, percent, produced int, message, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	// Progress is monotone; drop stale samples.
	if percent > job.ProgressPercent {
		job.ProgressPercent = percent
	}
	if produced > job.ProducedCount {
		job.ProducedCount = produced
	}
	job.Message = message
	job.Detail = detail
	job.LastTouched = time.Now()
	return nil
}

func (r *MemoryRegistry) SetOutput(_ context.Context, id, location string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.OutputLocation = location
	job.LastTouched = time.Now()
	return nil
}

func (r *MemoryRegistry) RequestCancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return domain.ErrJobTerminal
	}
	job.CancelRequested = true
	job.LastTouched = time.Now()
	return nil
}

func (r *MemoryRegistry) CancelRequested(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	return job.CancelRequested, nil
}

func (r *MemoryRegistry) Stale(_ context.Context, before time.Time) ([]*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var jobs []*domain.Job
	for _, job := range r.jobs {
		if job.LastTouched.Before(before) {
			clone := *job
			jobs = append(jobs, &clone)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

var _ domain.JobRegistry = (*MemoryRegistry)(nil)
