package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"artengine/internal/domain"
)

// CreateCollectionRequest wraps the engine contract with the staged input
// location. Upload intake is a separate concern; by the time a request lands
// here the layer tree already sits on disk.
type CreateCollectionRequest struct {
	InputPath string `json:"input_path"`
	domain.GenerateRequest
}

type jobResponse struct {
	ID              string            `json:"id"`
	Status          domain.JobStatus  `json:"status"`
	ProgressPercent int               `json:"progress_percent"`
	ProducedCount   int               `json:"produced_count"`
	Message         string            `json:"message"`
	Detail          string            `json:"detail,omitempty"`
	ErrorKind       domain.Kind       `json:"error_kind,omitempty"`
	Retryable       bool              `json:"retryable"`
	DownloadReady   bool              `json:"download_ready"`
}

func toJobResponse(job *domain.Job) jobResponse {
	retryable := job.ErrorKind == domain.KindTimeout || job.ErrorKind == domain.KindIOError
	return jobResponse{
		ID:              job.ID,
		Status:          job.Status,
		ProgressPercent: job.ProgressPercent,
		ProducedCount:   job.ProducedCount,
		Message:         job.Message,
		Detail:          job.Detail,
		ErrorKind:       job.ErrorKind,
		Retryable:       retryable,
		DownloadReady:   job.Status == domain.JobStatusCompleted && job.OutputLocation != "",
	}
}

// CreateCollection enqueues a generation job.
func (a *App) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.InputPath == "" {
		a.jsonError(w, http.StatusBadRequest, "input_path is required")
		return
	}
	if info, err := os.Stat(req.InputPath); err != nil || !info.IsDir() {
		a.jsonError(w, http.StatusBadRequest, "input_path is not a readable directory")
		return
	}

	job, err := a.Engine.Submit(r.Context(), req.GenerateRequest, req.InputPath)
	if err != nil {
		a.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.json(w, http.StatusAccepted, toJobResponse(job))
}

// GetJob reflects current registry state for a job.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.jsonError(w, http.StatusNotFound, "job not found")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: get job")
		a.jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

// CancelJob requests cooperative cancellation.
func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.Engine.Cancel(r.Context(), id)
	switch {
	case err == nil:
		a.json(w, http.StatusAccepted, map[string]string{"id": id, "status": "cancelling"})
	case errors.Is(err, domain.ErrNotFound):
		a.jsonError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, domain.ErrJobTerminal):
		a.jsonError(w, http.StatusConflict, "job already finished")
	default:
		a.Logger.Error().Err(err).Str("job_id", id).Msg("handlers: cancel job")
		a.jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// DownloadJob streams the packaged archive of a completed job.
func (a *App) DownloadJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.jsonError(w, http.StatusNotFound, "job not found")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: get job for download")
		a.jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if job.Status != domain.JobStatusCompleted || job.OutputLocation == "" {
		a.jsonError(w, http.StatusConflict, "job output not available")
		return
	}

	f, err := os.Open(job.OutputLocation)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", id).Msg("handlers: open archive")
		a.jsonError(w, http.StatusGone, "archive no longer available")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+job.Request.CollectionName+`.zip"`)
	http.ServeContent(w, r, job.Request.CollectionName+".zip", job.LastTouched, f)
}
