package domain

import (
	"context"
	"time"
)

// JobRegistry is the persistence contract for job lifecycle state. The engine
// is the only writer for a running job; hosts read and request cancellation.
type JobRegistry interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)

	// ClaimPending atomically moves the oldest pending job to running and
	// returns it, or ErrNoPendingJob.
	ClaimPending(ctx context.Context) (*Job, error)

	UpdateStatus(ctx context.Context, id string, status JobStatus, message, detail string, errKind Kind) error
	UpdateProgress(ctx context.Context, id string, percent, produced int, message, detail string) error
	SetOutput(ctx context.Context, id, location string) error

	// RequestCancel flags a pending or running job; the controller observes
	// the flag cooperatively. Terminal jobs report ErrJobTerminal.
	RequestCancel(ctx context.Context, id string) error
	CancelRequested(ctx context.Context, id string) (bool, error)

	// Stale lists jobs whose last_touched precedes the cutoff; the sweeper
	// uses it for retention and orphan reaping.
	Stale(ctx context.Context, before time.Time) ([]*Job, error)
	Delete(ctx context.Context, id string) error
}
