package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"photobot/internal/http/handlers"
	"photobot/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/healthz", app.Health)

	r.Route("/v1/generations", func(r chi.Router) {
		r.Post("/restoration", app.EnqueueRestoration)
		r.Post("/effect", app.EnqueueEffect)
		r.Post("/upgrade", app.EnqueueUpgrade)
		r.Post("/video", app.EnqueueVideo)
		r.Get("/{id}", app.GenerationStatus)
	})

	// Async providers call back here; the random segment makes each URL
	// single purpose and unguessable.
	r.Post("/video-webhook/{webhookID}", app.VideoWebhook)

	return r
}
