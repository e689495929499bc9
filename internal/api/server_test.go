package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stackresolve/internal/documents"
	"stackresolve/internal/errors"
	"stackresolve/internal/language"
	"stackresolve/internal/logging"
	"stackresolve/internal/repos"
	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

type fakeResolver struct {
	parsed      *stacktrace.ParsedStackTrace
	resolveResp *resolver.ResolveResponse
	resolveErr  error
	positionErr error
	panicOn     string

	lastResolve  resolver.ResolveRequest
	lastPosition resolver.PositionRequest
}

func (f *fakeResolver) ParseStackTrace(ctx context.Context, raw string) *stacktrace.ParsedStackTrace {
	if f.panicOn == "parse" {
		panic("boom")
	}
	if f.parsed != nil {
		return f.parsed
	}
	return &stacktrace.ParsedStackTrace{Text: &raw, Lines: []stacktrace.Frame{}}
}

func (f *fakeResolver) ResolveStackTrace(ctx context.Context, req resolver.ResolveRequest) (*resolver.ResolveResponse, error) {
	f.lastResolve = req
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if f.resolveResp != nil {
		return f.resolveResp, nil
	}
	return &resolver.ResolveResponse{TraceID: req.TraceID}, nil
}

func (f *fakeResolver) ResolveStackTracePosition(ctx context.Context, req resolver.PositionRequest) (*resolver.PositionResponse, error) {
	f.lastPosition = req
	if f.positionErr != nil {
		return nil, f.positionErr
	}
	line := req.Line + 1
	return &resolver.PositionResponse{Line: &line}, nil
}

type fakeRepos []repos.RepoEntry

func (f fakeRepos) List() []repos.RepoEntry { return f }

func newTestServer(t *testing.T, r *fakeResolver, entries ...repos.RepoEntry) (*Server, *documents.Store) {
	t.Helper()
	docs := documents.NewStore()
	return NewServer(":0", r, docs, fakeRepos(entries), logging.NewDiscardLogger()), docs
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	valid := t.TempDir()
	if err := os.Mkdir(filepath.Join(valid, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		entries []repos.RepoEntry
		status  string
	}{
		{"no repos", nil, "healthy"},
		{"valid repo", []repos.RepoEntry{{Name: "shop", Path: valid}}, "healthy"},
		{"missing repo", []repos.RepoEntry{
			{Name: "shop", Path: valid},
			{Name: "gone", Path: filepath.Join(valid, "nope")},
		}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, &fakeResolver{}, tt.entries...)
			w := do(t, s, http.MethodGet, "/health", "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var resp HealthResponse
			decode(t, w, &resp)
			if resp.Status != tt.status {
				t.Errorf("Status = %q, want %q", resp.Status, tt.status)
			}
			if resp.Repos.Total != len(tt.entries) {
				t.Errorf("Total = %d, want %d", resp.Repos.Total, len(tt.entries))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{})

	w := do(t, s, http.MethodGet, "/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestParse(t *testing.T) {
	fr := &fakeResolver{}
	s, _ := newTestServer(t, fr)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"string trace", `{"stackTrace":"Error: x\n    at f (/a.js:1:1)"}`, http.StatusOK},
		{"line array", `{"lines":["Error: x","    at f (/a.js:1:1)"]}`, http.StatusOK},
		{"empty trace", `{"stackTrace":"  "}`, http.StatusBadRequest},
		{"bad json", `{"stackTrace":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/stacktrace/parse", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if tt.status != http.StatusOK {
				var resp ErrorResponse
				decode(t, w, &resp)
				if resp.Code != string(errors.InvalidArgument) {
					t.Errorf("Code = %q", resp.Code)
				}
				return
			}
			var parsed stacktrace.ParsedStackTrace
			decode(t, w, &parsed)
			if parsed.Text == nil || !strings.Contains(*parsed.Text, "at f (/a.js:1:1)") {
				t.Errorf("unexpected text %v", parsed.Text)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	warning := &resolver.Warning{Message: `Repo "shop" not found in your editor. Open it in order to navigate the stack trace.`}
	fr := &fakeResolver{resolveResp: &resolver.ResolveResponse{TraceID: "t-1", Warning: warning}}
	s, _ := newTestServer(t, fr)

	body := `{"stackTrace":["Error: x"],"repoRemote":"git@github.com:acme/shop.git","sha":"abc"}`
	w := do(t, s, http.MethodPost, "/v1/stacktrace/resolve", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp resolver.ResolveResponse
	decode(t, w, &resp)
	if resp.Warning == nil || resp.Warning.Message != warning.Message {
		t.Errorf("Warning = %+v", resp.Warning)
	}
	if fr.lastResolve.RepoRemote != "git@github.com:acme/shop.git" || fr.lastResolve.Sha != "abc" {
		t.Errorf("request not forwarded: %+v", fr.lastResolve)
	}
	if fr.lastResolve.TraceID == "" {
		t.Error("expected trace id to default to the request id")
	}
	if fr.lastResolve.OnFrameResolved == nil {
		t.Error("expected frame callback to be installed")
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
		code   string
	}{
		{"missing trace", nil, `{"sha":"abc"}`, http.StatusBadRequest, string(errors.InvalidArgument)},
		{"timeout", errors.New(errors.Timeout, "cancelled", nil), `{"stackTrace":["x"]}`, http.StatusGatewayTimeout, string(errors.Timeout)},
		{"backend", errors.New(errors.BackendUnavailable, "no git", nil), `{"stackTrace":["x"]}`, http.StatusServiceUnavailable, string(errors.BackendUnavailable)},
		{"plain error", io.ErrUnexpectedEOF, `{"stackTrace":["x"]}`, http.StatusInternalServerError, string(errors.InternalError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, &fakeResolver{resolveErr: tt.err})
			w := do(t, s, http.MethodPost, "/v1/stacktrace/resolve", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var resp ErrorResponse
			decode(t, w, &resp)
			if resp.Code != tt.code {
				t.Errorf("Code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestPosition(t *testing.T) {
	fr := &fakeResolver{}
	s, _ := newTestServer(t, fr)

	w := do(t, s, http.MethodPost, "/v1/stacktrace/position",
		`{"sha":"abc","repoId":"r1","filePath":"src/a.go","line":4,"column":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp resolver.PositionResponse
	decode(t, w, &resp)
	if resp.Line == nil || *resp.Line != 5 {
		t.Errorf("Line = %v", resp.Line)
	}
	if fr.lastPosition.FilePath != "src/a.go" || fr.lastPosition.Column != 2 {
		t.Errorf("request not forwarded: %+v", fr.lastPosition)
	}

	fr.positionErr = errors.New(errors.RepoNotFound, "unknown repo", nil)
	w = do(t, s, http.MethodPost, "/v1/stacktrace/position", `{"sha":"abc","repoId":"nope","filePath":"a","line":1}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDocuments(t *testing.T) {
	s, docs := newTestServer(t, &fakeResolver{})

	w := do(t, s, http.MethodPut, "/v1/documents", `{"uri":"file:///tmp/a.js","text":"a\nb","version":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", w.Code, w.Body.String())
	}
	if doc, ok := docs.Get("file:///tmp/a.js"); !ok || doc.Text != "a\nb" || doc.Version != 2 {
		t.Errorf("stored document = %+v, %v", doc, ok)
	}

	w = do(t, s, http.MethodPut, "/v1/documents", `{"text":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT without uri status = %d", w.Code)
	}

	w = do(t, s, http.MethodDelete, "/v1/documents?uri=file:///tmp/a.js", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d", w.Code)
	}
	w = do(t, s, http.MethodDelete, "/v1/documents?uri=file:///tmp/a.js", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d", w.Code)
	}
	w = do(t, s, http.MethodDelete, "/v1/documents", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("DELETE without uri status = %d", w.Code)
	}
}

func TestListRepos(t *testing.T) {
	dir := t.TempDir()
	s, _ := newTestServer(t, &fakeResolver{}, repos.RepoEntry{ID: "r1", Name: "shop", Path: dir})

	w := do(t, s, http.MethodGet, "/v1/repos", "")
	var resp struct {
		Repos []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			State string `json:"state"`
		} `json:"repos"`
	}
	decode(t, w, &resp)
	if len(resp.Repos) != 1 || resp.Repos[0].Name != "shop" || resp.Repos[0].ID != "r1" {
		t.Fatalf("Repos = %+v", resp.Repos)
	}
	if resp.Repos[0].State != string(repos.RepoStateNotGit) {
		t.Errorf("State = %q", resp.Repos[0].State)
	}
}

func TestRouting(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{})

	if w := do(t, s, http.MethodGet, "/v1/nothing", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/v1/stacktrace/parse", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method status = %d", w.Code)
	}
	if w := do(t, s, http.MethodOptions, "/v1/stacktrace/parse", ""); w.Code != http.StatusOK {
		t.Errorf("preflight status = %d", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	s, _ := newTestServer(t, &fakeResolver{panicOn: "parse"})

	w := do(t, s, http.MethodPost, "/v1/stacktrace/parse", `{"stackTrace":"x"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	decode(t, w, &resp)
	if resp.Code != string(errors.InternalError) {
		t.Errorf("Code = %q", resp.Code)
	}
}

func TestGzip(t *testing.T) {
	big := strings.Repeat("    at handler (/srv/app/src/server.js:3:9)\n", 100)
	s, _ := newTestServer(t, &fakeResolver{parsed: &stacktrace.ParsedStackTrace{
		Text:     &big,
		Language: language.JavaScript,
		Lines:    []stacktrace.Frame{},
	}})

	body, _ := json.Marshal(ParseRequest{StackTrace: big})
	req := httptest.NewRequest(http.MethodPost, "/v1/stacktrace/parse", bytes.NewReader(body))
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, headers %v", w.Header())
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	var parsed stacktrace.ParsedStackTrace
	if err := json.NewDecoder(zr).Decode(&parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Text == nil || *parsed.Text != big {
		t.Error("decompressed body does not round-trip")
	}
}
