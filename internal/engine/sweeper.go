package engine

import (
	"context"
	"time"

	"artengine/internal/domain"
	"artengine/internal/infra"
	"artengine/internal/storage"
)

// Sweeper reaps finished jobs' working trees once their retention lapses and
// deletes orphaned jobs that stopped being touched.
type Sweeper struct {
	registry domain.JobRegistry
	store    *storage.FileStore
	logger   infra.Logger

	interval      time.Duration
	orphanMaxAge  time.Duration
	baseRetention time.Duration
	maxRetention  time.Duration
}

func NewSweeper(registry domain.JobRegistry, store *storage.FileStore, logger infra.Logger, cfg *infra.Config) *Sweeper {
	return &Sweeper{
		registry:      registry,
		store:         store,
		logger:        logger,
		interval:      cfg.SweepInterval,
		orphanMaxAge:  cfg.OrphanMaxAge,
		baseRetention: cfg.BaseRetention,
		maxRetention:  cfg.MaxRetention,
	}
}

// Run sweeps on a fixed cadence until the context ends.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single pass. Terminal jobs lose their working tree after
// a retention scaled by collection size; jobs untouched past the orphan
// max-age are reaped regardless of state.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()
	candidates, err := s.registry.Stale(ctx, now.Add(-minDuration(s.baseRetention, s.orphanMaxAge)))
	if err != nil {
		s.logger.Error().Err(err).Msg("sweeper: list stale jobs")
		return
	}
	for _, job := range candidates {
		age := now.Sub(job.LastTouched)
		switch {
		case job.Status.Terminal():
			retention := retentionFor(job.Request.CollectionSize, s.baseRetention, s.maxRetention)
			if age > retention {
				s.reap(ctx, job)
			}
		case age > s.orphanMaxAge:
			s.reap(ctx, job)
		}
	}
}

func (s *Sweeper) reap(ctx context.Context, job *domain.Job) {
	if err := s.store.RemoveJob(job.ID); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("sweeper: remove working tree")
		return
	}
	if err := s.registry.Delete(ctx, job.ID); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("sweeper: delete job record")
		return
	}
	s.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("sweeper: reaped job")
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
