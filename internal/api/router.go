package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/scry-kanji/internal/api/middleware"
	"github.com/phrazzld/scry-kanji/internal/app"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the application router with all routes and middleware.
func NewRouter(sc *app.SchedulerContext) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(sc.Logger))

	sessionHandler := NewSessionHandler(sc.Controller, sc.Logger)
	progressHandler := NewProgressHandler(sc.Items, sc.Catalog, sc.Builder, sc.Clock, sc.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSession)
			r.Post("/", sessionHandler.StartSession)
			r.Post("/resume", sessionHandler.ResumeSession)
			r.Post("/rate", sessionHandler.Rate)
			r.Post("/skip", sessionHandler.Skip)
			r.Post("/next", sessionHandler.Next)
			r.Post("/previous", sessionHandler.Previous)
			r.Post("/leave", sessionHandler.Leave)
		})

		r.Get("/items", progressHandler.ListItems)
		r.Post("/items/{id}/study", sessionHandler.StudyItem)
		r.Get("/stats", progressHandler.GetStats)
		r.Get("/export", progressHandler.Export)
		r.Post("/import", progressHandler.Import)
		r.Get("/preferences", progressHandler.GetPreferences)
		r.Put("/preferences", progressHandler.PutPreferences)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			sc.Logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
