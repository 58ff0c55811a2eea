package engine

import (
	"context"
	"sync"

	"artengine/internal/domain"
)

// ProgressFunc receives host-facing progress samples for a job.
type ProgressFunc func(jobID string, sample domain.ProgressSample)

// Fixed percent marks for the pipeline phases; item production fills the
// span between selection start and packaging.
const (
	percentLoading    = 2
	percentPreResize  = 5
	percentSelecting  = 8
	percentPackaging  = 97
	percentCompleted  = 100
	generationSpan    = percentPackaging - percentSelecting
)

// progressTracker turns produced-item counts and phase transitions into
// monotone progress samples. Workers call Item concurrently; samples are
// serialized under the mutex and never regress.
type progressTracker struct {
	registry   domain.JobRegistry
	onProgress ProgressFunc
	jobID      string
	total      int
	stride     int

	mu       sync.Mutex
	produced int
	percent  int
}

func newProgressTracker(registry domain.JobRegistry, onProgress ProgressFunc, jobID string, total int) *progressTracker {
	return &progressTracker{
		registry:   registry,
		onProgress: onProgress,
		jobID:      jobID,
		total:      total,
		stride:     progressStride(total),
	}
}

// Phase emits a sample at a component-phase transition.
func (p *progressTracker) Phase(ctx context.Context, percent int, message, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitLocked(ctx, percent, message, detail)
}

// Item records one produced item and emits a sample on stride boundaries.
func (p *progressTracker) Item(ctx context.Context, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.produced++
	if p.produced%p.stride != 0 && p.produced != p.total {
		return
	}
	percent := percentSelecting + p.produced*generationSpan/p.total
	p.emitLocked(ctx, percent, message, "")
}

// Produced returns the current accepted-item count.
func (p *progressTracker) Produced() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.produced
}

func (p *progressTracker) emitLocked(ctx context.Context, percent int, message, detail string) {
	if percent < p.percent {
		percent = p.percent
	}
	p.percent = percent
	sample := domain.ProgressSample{
		ProgressPercent: percent,
		Message:         message,
		Detail:          detail,
		ProducedCount:   p.produced,
	}
	// Registry writes ride on a detached context: a cancelled run must
	// still be able to record its final samples.
	_ = p.registry.UpdateProgress(context.WithoutCancel(ctx), p.jobID, sample.ProgressPercent, sample.ProducedCount, sample.Message, sample.Detail)
	if p.onProgress != nil {
		p.onProgress(p.jobID, sample)
	}
}
