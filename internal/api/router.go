package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/snapshot", s.handleSnapshot)

		r.Route("/device", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Put("/power-sources", s.handleSetPowerSources)
			r.Put("/power-sources/{source}", s.handleSetMeasurement)
			r.Put("/battery", s.handleSetBattery)
			r.Post("/errors", s.handleAddError)
			r.Delete("/errors/{code}", s.handleRemoveError)
			r.Put("/memory", s.handleSetMemory)
			r.Get("/time", s.handleGetTime)
			r.Put("/time", s.handleSetTime)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", s.handleListInstances)
			r.Post("/", s.handleCreateInstance)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetInstance)
				r.Delete("/", s.handleDeleteInstance)
				r.Get("/identities/{field}", s.handleReadIdentity)
				r.Put("/identities/{field}", s.handleWriteIdentity)
			})
		})

		r.Get("/location", s.handleGetLocation)
		r.Put("/location", s.handleSetLocation)
		r.Get("/velocity", s.handleGetVelocity)
		r.Put("/velocity", s.handleSetVelocity)

		r.Route("/appdata", func(r chi.Router) {
			r.Get("/", s.handleAppDataStatus)
			r.Post("/", s.handleSendAppData)
			r.Post("/take", s.handleTakeAppData)
		})

		r.Get("/session", s.handleGetSession)
		r.Post("/events", s.handleDispatchEvent)
		r.Get("/journal", s.handleJournal)

		r.Get(s.hub.cfg.Path, s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"session": s.registry.Dispatcher().Status().State,
	})
}

// handleSnapshot returns every store in one response.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot())
}
