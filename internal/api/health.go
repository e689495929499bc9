package api

import (
	"net/http"
	"time"

	"stackresolve/internal/repos"
	"stackresolve/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Repos     RepoStats `json:"repos"`
}

// RepoStats counts registered work trees by state.
type RepoStats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Missing int `json:"missing"`
	NotGit  int `json:"notGit"`
}

// handleHealth reports "degraded" when a registered work tree is unusable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}

	if s.repos != nil {
		for _, entry := range s.repos.List() {
			resp.Repos.Total++
			switch entry.State() {
			case repos.RepoStateValid:
				resp.Repos.Valid++
			case repos.RepoStateMissing:
				resp.Repos.Missing++
			case repos.RepoStateNotGit:
				resp.Repos.NotGit++
			}
		}
	}
	if resp.Repos.Missing+resp.Repos.NotGit > 0 {
		resp.Status = "degraded"
	}

	WriteJSON(w, resp, http.StatusOK)
}
