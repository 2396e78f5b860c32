package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes under the configured prefix.
func (s *Server) setupRoutes() {
	r := s.router

	if s.metrics != nil {
		r.Method("GET", "/metrics", s.metrics.Handler())
	}

	r.Route(s.BasePath()+"/api", func(r chi.Router) {
		// Event streaming (SSE) runs outside the request timeout
		r.Get("/events", s.events)

		r.Group(func(r chi.Router) {
			r.Use(s.withTimeout)

			// Commands
			r.Get("/list", s.listCommands)
			r.Post("/run", s.runCommand)
			r.Post("/retry", s.retryCommand)
			r.Get("/search", s.searchCommands)
			r.Get("/categories", s.listCategories)
			r.Get("/category/{category}", s.commandsByCategory)

			// Executions
			r.Get("/dashboard", s.dashboard)
			r.Get("/recent", s.recentExecutions)
			r.Get("/popular", s.popularCommands)
			r.Get("/failed", s.failedCommands)
			r.Get("/activity", s.activity)
			r.Get("/user/{user}", s.executionsByUser)
			r.Post("/cleanup", s.cleanup)
			r.Get("/schedule", s.schedule)

			r.Get("/{command}/history", s.commandHistory)
			r.Get("/{command}/stats", s.commandStats)

			if s.config.Development {
				r.Get("/test", s.listCommands)
			}
		})
	})
}
