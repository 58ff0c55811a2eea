package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"artengine/internal/http/handlers"
	"artengine/internal/middleware"
)

func NewRouter(app *handlers.App, corsOrigins []string) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	if len(corsOrigins) > 0 {
		r.Use(middleware.CORS(corsOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/collections", func(r chi.Router) {
		r.Post("/", app.CreateCollection)
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Get("/{id}", app.GetJob)
		r.Post("/{id}/cancel", app.CancelJob)
		r.Get("/{id}/download", app.DownloadJob)
	})

	return r
}
