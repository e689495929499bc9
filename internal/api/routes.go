package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"stackresolve/internal/version"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/stacktrace/parse", s.handleParse)
		r.Post("/stacktrace/resolve", s.handleResolve)
		r.Post("/stacktrace/position", s.handlePosition)

		r.Put("/documents", s.handlePutDocument)
		r.Delete("/documents", s.handleCloseDocument)

		r.Get("/repos", s.handleListRepos)
	})

	s.router.Get("/", s.handleRoot)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "No route for "+r.Method+" "+r.URL.Path)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, ErrorResponse{
			Error: "Method not allowed",
			Code:  "METHOD_NOT_ALLOWED",
		}, http.StatusMethodNotAllowed)
	})
}

// handleRoot lists the available endpoints.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"name":    "stackresolve HTTP API",
		"version": version.Version,
		"endpoints": []string{
			"GET /health - Health check",
			"POST /v1/stacktrace/parse - Parse a raw stack trace",
			"POST /v1/stacktrace/resolve - Resolve a stack trace against a local work tree",
			"POST /v1/stacktrace/position - Resolve a single position",
			"PUT /v1/documents - Push an unsaved buffer",
			"DELETE /v1/documents?uri=... - Drop an unsaved buffer",
			"GET /v1/repos - List registered repositories",
		},
	}

	WriteJSON(w, response, http.StatusOK)
}
