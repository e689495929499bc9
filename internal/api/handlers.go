package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"stackresolve/internal/documents"
	"stackresolve/internal/repos"
	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

// maxBodyBytes bounds request bodies; buffers are the largest payloads.
const maxBodyBytes = 16 << 20

// ParseRequest is the body of POST /v1/stacktrace/parse. Either field may
// carry the trace.
type ParseRequest struct {
	StackTrace string   `json:"stackTrace"`
	Lines      []string `json:"lines,omitempty"`
}

// DocumentRequest is the body of PUT /v1/documents.
type DocumentRequest struct {
	URI     string `json:"uri"`
	Text    string `json:"text"`
	Version int    `json:"version,omitempty"`
}

// RepoListResponse is the body of GET /v1/repos.
type RepoListResponse struct {
	Repos []RepoInfo `json:"repos"`
}

// RepoInfo is a registered work tree with its current state.
type RepoInfo struct {
	repos.RepoEntry
	State repos.RepoState `json:"state"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			BadRequest(w, "Request body is empty")
			return false
		}
		BadRequest(w, fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}
	return true
}

// handleParse parses a trace without touching any repository.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	raw := req.StackTrace
	if raw == "" && len(req.Lines) > 0 {
		raw = strings.Join(req.Lines, "\n")
	}
	if strings.TrimSpace(raw) == "" {
		BadRequest(w, "stackTrace is required")
		return
	}

	WriteJSON(w, s.resolver.ParseStackTrace(r.Context(), raw), http.StatusOK)
}

// handleResolve resolves a trace. Warnings and trace-level errors are part
// of a 200 response; only unexpected failures map to error statuses.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolver.ResolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.StackTrace) == 0 {
		BadRequest(w, "stackTrace is required")
		return
	}
	if req.TraceID == "" {
		req.TraceID = GetRequestID(r.Context())
	}

	logger := requestLogger(r.Context(), s.logger)
	req.OnFrameResolved = func(index int, frame stacktrace.Frame) {
		fields := map[string]interface{}{"traceId": req.TraceID, "index": index}
		if frame.Error != nil {
			fields["error"] = *frame.Error
		}
		logger.Debug("Frame resolved", fields)
	}

	resp, err := s.resolver.ResolveStackTrace(r.Context(), req)
	if err != nil {
		logger.Error("Stack trace resolution failed", map[string]interface{}{
			"traceId": req.TraceID,
			"error":   err.Error(),
		})
		WriteStackError(w, err)
		return
	}

	WriteJSON(w, resp, http.StatusOK)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req resolver.PositionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.resolver.ResolveStackTracePosition(r.Context(), req)
	if err != nil {
		WriteStackError(w, err)
		return
	}

	WriteJSON(w, resp, http.StatusOK)
}

// handlePutDocument stores an unsaved buffer so resolution sees edits that
// are not on disk yet.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.URI == "" {
		BadRequest(w, "uri is required")
		return
	}

	doc, err := s.documents.Put(req.URI, req.Text, req.Version)
	if err != nil {
		WriteStackError(w, err)
		return
	}

	WriteJSON(w, documentSummary(doc), http.StatusOK)
}

func (s *Server) handleCloseDocument(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		BadRequest(w, "uri query parameter is required")
		return
	}
	if !s.documents.Close(uri) {
		NotFound(w, "No open document for "+uri)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	resp := RepoListResponse{Repos: []RepoInfo{}}
	for _, entry := range s.repos.List() {
		resp.Repos = append(resp.Repos, RepoInfo{RepoEntry: entry, State: entry.State()})
	}
	WriteJSON(w, resp, http.StatusOK)
}

// documentSummary omits the text, which the client already has.
func documentSummary(doc documents.Document) map[string]interface{} {
	return map[string]interface{}{
		"uri":       doc.URI,
		"version":   doc.Version,
		"updatedAt": doc.UpdatedAt,
		"lines":     strings.Count(doc.Text, "\n") + 1,
	}
}
