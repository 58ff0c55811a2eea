package engine

import (
	"context"
	"errors"
	"time"

	"artengine/internal/domain"
)

// Poll claims pending jobs from the registry and runs them to a terminal
// state, one at a time, until the context ends. Hosts run one Poll loop per
// worker process; job-internal parallelism comes from the render pool.
func (e *Engine) Poll(ctx context.Context, interval time.Duration) error {
	e.logger.Info().Dur("interval", interval).Msg("engine: poller started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := e.registry.ClaimPending(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNoPendingJob) {
				e.logger.Error().Err(err).Msg("engine: claim job failed")
			}
			if !sleepCtx(ctx, interval) {
				return ctx.Err()
			}
			continue
		}

		e.logger.Info().Str("job_id", job.ID).Msg("engine: picked job")
		// Run records its own outcome; the loop only keeps polling.
		_ = e.Run(ctx, job)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
