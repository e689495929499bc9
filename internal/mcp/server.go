// Package mcp exposes stack trace resolution as Model Context Protocol tools.
package mcp

import (
	"context"
	"net/http"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"stackresolve/internal/logging"
	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

const serverName = "stackresolve"

const instructions = `Resolve production stack traces against local git work trees.

1. parse_stack_trace splits a raw trace into frames and detects its language.
2. resolve_stack_trace finds the registered work tree whose remote matches
   repoRemote, then moves every frame from the deployed commit (sha) to the
   current buffer contents. The result carries a warning when no work tree
   matches and an error when the commit cannot be found even after fetching.
3. resolve_stack_trace_position moves one file position the same way, given
   a repository id returned by resolve_stack_trace.

Lines and columns are 1-based.`

// StackResolver is the part of resolver.Resolver the tools call.
type StackResolver interface {
	ParseStackTrace(ctx context.Context, raw string) *stacktrace.ParsedStackTrace
	ResolveStackTrace(ctx context.Context, req resolver.ResolveRequest) (*resolver.ResolveResponse, error)
	ResolveStackTracePosition(ctx context.Context, req resolver.PositionRequest) (*resolver.PositionResponse, error)
}

// MCPServer represents the MCP server
type MCPServer struct {
	server   *sdk.Server
	resolver StackResolver
	logger   *logging.Logger
	version  string
}

// NewMCPServer creates a server with every tool registered.
func NewMCPServer(version string, r StackResolver, logger *logging.Logger) *MCPServer {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	s := &MCPServer{
		resolver: r,
		logger:   logger,
		version:  version,
	}
	s.server = sdk.NewServer(&sdk.Implementation{
		Name:    serverName,
		Version: version,
	}, &sdk.ServerOptions{
		Instructions: instructions,
	})
	s.server.AddReceivingMiddleware(loggingMiddleware(logger))
	s.RegisterTools()
	return s
}

// Server returns the underlying protocol server.
func (s *MCPServer) Server() *sdk.Server {
	return s.server
}

// Start serves a single client over stdin/stdout until ctx is done or the
// client disconnects.
func (s *MCPServer) Start(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio", map[string]interface{}{
		"version": s.version,
	})
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// HTTPHandler serves the streamable HTTP transport. Every session shares
// this server's tools.
func (s *MCPServer) HTTPHandler() http.Handler {
	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server {
		return s.server
	}, nil)
}

// loggingMiddleware logs every method call with its duration.
func loggingMiddleware(logger *logging.Logger) sdk.Middleware {
	return func(next sdk.MethodHandler) sdk.MethodHandler {
		return func(ctx context.Context, method string, req sdk.Request) (sdk.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)

			fields := map[string]interface{}{
				"method":     method,
				"durationMs": time.Since(start).Milliseconds(),
			}
			if session := req.GetSession(); session != nil && session.ID() != "" {
				fields["session"] = session.ID()
			}
			if err != nil {
				fields["error"] = err.Error()
				logger.Warn("MCP request failed", fields)
				return result, err
			}
			logger.Debug("MCP request", fields)
			return result, nil
		}
	}
}
