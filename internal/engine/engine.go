// Package engine owns the job lifecycle: it drives trait loading, selection,
// rendering and metadata emission under a bounded worker pool, reports
// progress, honours deadlines and cancellation, and cleans up after itself.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"artengine/internal/catalog"
	"artengine/internal/domain"
	"artengine/internal/infra"
	"artengine/internal/metadata"
	"artengine/internal/rarity"
	"artengine/internal/render"
	"artengine/internal/selector"
	"artengine/internal/storage"
	"artengine/pkg/zip"
)

// cancelPollInterval paces the watcher that surfaces registry cancel flags
// into the run context.
const cancelPollInterval = time.Second

// Options tunes controller policy; zero values fall back to the defaults
// from infra.LoadConfig.
type Options struct {
	BaseTimeout      time.Duration
	PerItemTimeout   time.Duration
	TimeoutSlack     time.Duration
	CacheBudgetBytes int64
	OnProgress       ProgressFunc
}

func (o *Options) withDefaults() {
	if o.BaseTimeout == 0 {
		o.BaseTimeout = 2 * time.Minute
	}
	if o.PerItemTimeout == 0 {
		o.PerItemTimeout = 750 * time.Millisecond
	}
	if o.TimeoutSlack == 0 {
		o.TimeoutSlack = 30 * time.Second
	}
	if o.CacheBudgetBytes == 0 {
		o.CacheBudgetBytes = 256 << 20
	}
}

// Engine coordinates generation jobs against a registry and a file store.
type Engine struct {
	registry domain.JobRegistry
	store    *storage.FileStore
	logger   infra.Logger
	opts     Options

	mu      sync.Mutex
	cancels map[string]context.CancelCauseFunc
}

func New(registry domain.JobRegistry, store *storage.FileStore, logger infra.Logger, opts Options) *Engine {
	opts.withDefaults()
	return &Engine{
		registry: registry,
		store:    store,
		logger:   logger,
		opts:     opts,
		cancels:  make(map[string]context.CancelCauseFunc),
	}
}

// Submit validates a request and enqueues a pending job. inputPath is the
// root of the staged layer tree.
func (e *Engine) Submit(ctx context.Context, req domain.GenerateRequest, inputPath string) (*domain.Job, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if inputPath == "" {
		return nil, fmt.Errorf("input path is required")
	}
	now := time.Now()
	job := &domain.Job{
		ID:          uuid.NewString(),
		Request:     req,
		InputPath:   inputPath,
		Status:      domain.JobStatusPending,
		Message:     "queued",
		CreatedAt:   now,
		LastTouched: now,
	}
	if err := e.registry.Create(ctx, job); err != nil {
		return nil, err
	}
	e.logger.Info().Str("job_id", job.ID).Int("size", req.CollectionSize).Msg("engine: job queued")
	return job, nil
}

// Cancel flags the job in the registry and, when the job runs in this
// process, fires its cancel cause immediately.
func (e *Engine) Cancel(ctx context.Context, jobID string) error {
	if err := e.registry.RequestCancel(ctx, jobID); err != nil {
		return err
	}
	e.mu.Lock()
	cancel := e.cancels[jobID]
	e.mu.Unlock()
	if cancel != nil {
		cancel(domain.Cancelled())
	}
	return nil
}

// Run executes one claimed job to a terminal state. The returned error is
// the structured failure already recorded in the registry, or nil.
func (e *Engine) Run(ctx context.Context, job *domain.Job) error {
	req := &job.Request
	req.Normalize()
	n := req.CollectionSize

	deadline := jobTimeout(n, e.opts.BaseTimeout, e.opts.PerItemTimeout, e.opts.TimeoutSlack)
	tctx, tcancel := context.WithTimeoutCause(ctx, deadline, domain.Timeout())
	defer tcancel()
	runCtx, cancel := context.WithCancelCause(tctx)
	defer cancel(nil)

	e.registerCancel(job.ID, cancel)
	defer e.unregisterCancel(job.ID)
	go e.watchCancelFlag(runCtx, job.ID, cancel)

	if err := e.registry.UpdateStatus(ctx, job.ID, domain.JobStatusRunning, "starting", "", ""); err != nil {
		return err
	}

	err := e.generate(runCtx, job)
	if err != nil {
		return e.fail(ctx, job, err)
	}

	if err := e.registry.UpdateStatus(context.WithoutCancel(ctx), job.ID, domain.JobStatusCompleted, "completed", "", ""); err != nil {
		return err
	}
	e.logger.Info().Str("job_id", job.ID).Int("items", n).Msg("engine: job completed")
	return nil
}

func (e *Engine) generate(ctx context.Context, job *domain.Job) error {
	req := &job.Request
	n := req.CollectionSize
	lowMemory := req.LowMemoryMode()
	progress := newProgressTracker(e.registry, e.opts.OnProgress, job.ID, n)

	progress.Phase(ctx, percentLoading, "loading traits", "")
	loaded, err := catalog.NewLoader(e.logger).Load(job.InputPath, req)
	if err != nil {
		return err
	}
	if err := rarity.Apply(loaded, req.RarityMode, req.RarityTiers); err != nil {
		return err
	}

	// Capacity check happens before any file is written.
	capacity := selector.MaxCombinations(loaded)
	if !req.AllowDuplicates && int64(n) > capacity {
		return domain.InsufficientDiversity(n, capacity)
	}

	if err := e.store.CreateJobTree(job.ID); err != nil {
		return domain.IOError(e.store.JobRoot(job.ID), err)
	}

	renderer := render.New(render.Options{
		CanvasSize:   req.OutputSize,
		Compression:  compressionLevel(n, lowMemory),
		CacheEntries: cacheEntries(lowMemory, e.opts.CacheBudgetBytes, req.OutputSize),
	})

	progress.Phase(ctx, percentPreResize, "preparing variants", "")
	working := loaded.Clone()
	if err := renderer.PreResize(ctx, working, e.store.WorkRoot(job.ID), lowMemory); err != nil {
		return causeOrErr(ctx, err)
	}

	progress.Phase(ctx, percentSelecting, "selecting traits", "")
	seed := resolveSeed(req.Seed)
	sel := selector.New(working, seed, n, req.AllowDuplicates)
	activeLayers := working.ActiveLayers()

	type item struct {
		index int
		dna   selector.DNA
	}
	workers := poolSize(n, lowMemory)
	items := make(chan item, workers)
	g, gctx := errgroup.WithContext(ctx)

	// DNA acceptance is serialized so the index-to-DNA mapping, and with it
	// every output byte, is a pure function of (catalog, config, seed).
	g.Go(func() error {
		defer close(items)
		for i := 1; i <= n; i++ {
			dna, err := sel.Draw(gctx, n-i+1)
			if err != nil {
				return err
			}
			select {
			case items <- item{index: i, dna: dna}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for it := range items {
				if err := e.produceItem(gctx, renderer, activeLayers, req, job.ID, it.index, it.dna); err != nil {
					return err
				}
				progress.Item(gctx, "generating items")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return causeOrErr(ctx, err)
	}

	progress.Phase(ctx, percentPackaging, "packaging", "")
	if err := e.packageOutput(ctx, job.ID); err != nil {
		return causeOrErr(ctx, err)
	}
	progress.Phase(ctx, percentCompleted, "completed", "")
	return nil
}

// produceItem runs the render-then-emit stage for a single item. Panics from
// pathological inputs are contained and surfaced as allocation failures.
func (e *Engine) produceItem(ctx context.Context, renderer *render.Renderer, layers []catalog.Layer, req *domain.GenerateRequest, jobID string, index int, dna selector.DNA) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = domain.OutOfMemory(fmt.Errorf("render item %d: %v", index, rec))
		}
	}()

	imageBytes, err := renderer.Render(ctx, layers, dna)
	if err != nil {
		return err
	}
	doc, err := metadata.Build(req, index, dna).Marshal()
	if err != nil {
		return fmt.Errorf("marshal metadata %d: %w", index, err)
	}

	imageKey, metadataKey := storage.ItemKeys(jobID, index)
	if _, err := e.store.Write(ctx, imageKey, imageBytes); err != nil {
		return wrapWriteErr(imageKey, err)
	}
	if _, err := e.store.Write(ctx, metadataKey, doc); err != nil {
		return wrapWriteErr(metadataKey, err)
	}
	return nil
}

// wrapWriteErr classifies a storage write failure as an I/O error for the key.
func wrapWriteErr(key string, err error) error {
	return domain.IOError(key, err)
}

func (e *Engine) packageOutput(ctx context.Context, jobID string) error {
	archivePath := e.store.ArchivePath(jobID)
	f, err := os.Create(archivePath)
	if err != nil {
		return domain.IOError(archivePath, err)
	}
	if err := zip.WriteArchive(f, e.store.OutputRoot(jobID)); err != nil {
		f.Close()
		return domain.IOError(archivePath, err)
	}
	if err := f.Close(); err != nil {
		return domain.IOError(archivePath, err)
	}
	return e.registry.SetOutput(context.WithoutCancel(ctx), jobID, archivePath)
}

// fail records the terminal failure and removes the working tree; partial
// results are never delivered.
func (e *Engine) fail(ctx context.Context, job *domain.Job, cause error) error {
	ctx = context.WithoutCancel(ctx)

	status := domain.JobStatusFailed
	kind := domain.KindOf(cause)
	if kind == domain.KindCancelled {
		status = domain.JobStatusCancelled
	}

	var de *domain.Error
	message := cause.Error()
	detail := ""
	if errors.As(cause, &de) {
		message = de.Error()
		if de.Err != nil {
			detail = de.Err.Error()
		}
	}

	if err := e.registry.UpdateStatus(ctx, job.ID, status, message, detail, kind); err != nil {
		e.logger.Error().Err(err).Str("job_id", job.ID).Msg("engine: record failure status")
	}
	if err := e.store.RemoveJob(job.ID); err != nil {
		e.logger.Error().Err(err).Str("job_id", job.ID).Msg("engine: remove working tree")
	}
	e.logger.Warn().Err(cause).Str("job_id", job.ID).Str("kind", string(kind)).Msg("engine: job did not complete")
	return cause
}

func (e *Engine) registerCancel(jobID string, cancel context.CancelCauseFunc) {
	e.mu.Lock()
	e.cancels[jobID] = cancel
	e.mu.Unlock()
}

func (e *Engine) unregisterCancel(jobID string) {
	e.mu.Lock()
	delete(e.cancels, jobID)
	e.mu.Unlock()
}

// watchCancelFlag lifts the registry's cancel flag into the run context so
// out-of-process cancel requests reach the worker.
func (e *Engine) watchCancelFlag(ctx context.Context, jobID string, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(cancelPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested, err := e.registry.CancelRequested(ctx, jobID)
			if err != nil {
				continue
			}
			if requested {
				cancel(domain.Cancelled())
				return
			}
		}
	}
}

// causeOrErr prefers the run context's cancel cause (timeout or user cancel)
// over the component error it interrupted.
func causeOrErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return domain.Cancelled()
	}
	return err
}

func cacheEntries(lowMemory bool, budgetBytes int64, canvasSize int) int {
	if lowMemory {
		return 0
	}
	return render.CacheEntriesForBudget(budgetBytes, canvasSize)
}

func resolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return time.Now().UnixNano()
}
