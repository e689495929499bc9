package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"stackresolve/internal/logging"
	"stackresolve/internal/mcp"
	"stackresolve/internal/version"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol server so agents can parse and
resolve stack traces.

The server exposes the following tools:
  - parse_stack_trace
  - resolve_stack_trace
  - resolve_stack_trace_position

By default it speaks over stdio; --http serves the streamable HTTP
transport instead.

Example usage:
  stackresolve mcp
  stackresolve mcp --http localhost:9331`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "Serve the streamable HTTP transport on this address instead of stdio")
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs stay on stderr in JSON.
	logger := logging.NewLogger(logging.Config{
		Format: logging.JSONFormat,
		Level:  logging.ParseLevel(a.cfg.Logging.Level),
		Output: os.Stderr,
	})
	server := mcp.NewMCPServer(version.Version, a.resolver, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mcpHTTPAddr == "" {
		return server.Start(ctx)
	}

	httpServer := &http.Server{
		Addr:              mcpHTTPAddr,
		Handler:           server.HTTPHandler(),
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting MCP server on HTTP", map[string]interface{}{
		"addr":    mcpHTTPAddr,
		"version": version.Version,
	})
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
