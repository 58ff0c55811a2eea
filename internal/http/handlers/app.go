// Package handlers exposes the engine to HTTP clients. The handlers perform
// no generation logic themselves; they validate requests, hand them to the
// engine, and reflect registry state.
package handlers

import (
	"encoding/json"
	"net/http"

	"artengine/internal/domain"
	"artengine/internal/engine"
	"artengine/internal/infra"
	"artengine/internal/storage"
)

type App struct {
	Engine   *engine.Engine
	Registry domain.JobRegistry
	Store    *storage.FileStore
	Logger   infra.Logger
}

func NewApp(eng *engine.Engine, registry domain.JobRegistry, store *storage.FileStore, logger infra.Logger) *App {
	return &App{Engine: eng, Registry: registry, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}
