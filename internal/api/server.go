package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"stackresolve/internal/documents"
	"stackresolve/internal/logging"
	"stackresolve/internal/repos"
	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

// StackResolver is the part of resolver.Resolver the server drives.
type StackResolver interface {
	ParseStackTrace(ctx context.Context, raw string) *stacktrace.ParsedStackTrace
	ResolveStackTrace(ctx context.Context, req resolver.ResolveRequest) (*resolver.ResolveResponse, error)
	ResolveStackTracePosition(ctx context.Context, req resolver.PositionRequest) (*resolver.PositionResponse, error)
}

// DocumentStore holds unsaved editor buffers pushed by clients.
type DocumentStore interface {
	Put(uri, text string, version int) (documents.Document, error)
	Close(uri string) bool
}

// RepoLister lists registered work trees.
type RepoLister interface {
	List() []repos.RepoEntry
}

// Server represents the HTTP API server
type Server struct {
	router    chi.Router
	server    *http.Server
	addr      string
	logger    *logging.Logger
	resolver  StackResolver
	documents DocumentStore
	repos     RepoLister
	started   time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(addr string, r StackResolver, docs DocumentStore, registry RepoLister, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	s := &Server{
		addr:      addr,
		logger:    logger,
		resolver:  r,
		documents: docs,
		repos:     registry,
		router:    chi.NewRouter(),
		started:   time.Now(),
	}

	s.applyMiddleware()
	s.registerRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           gzhttp.GzipHandler(s.router),
		ReadHeaderTimeout: 15 * time.Second,
		// Resolution may fetch remotes, so writes get the longer budget.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully", nil)
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware installs middleware; the first one added runs outermost.
func (s *Server) applyMiddleware() {
	s.router.Use(CORSMiddleware())
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
}
