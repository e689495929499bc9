package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"stackresolve/internal/errors"
	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

// ParseArgs are the arguments of parse_stack_trace.
type ParseArgs struct {
	StackTrace string `json:"stackTrace" jsonschema:"The raw stack trace text, including the error header line when available"`
}

// ResolveArgs are the arguments of resolve_stack_trace.
type ResolveArgs struct {
	StackTrace   string `json:"stackTrace" jsonschema:"The raw stack trace text"`
	RepoRemote   string `json:"repoRemote" jsonschema:"Remote URL of the repository that produced the trace, in any git URL form"`
	Sha          string `json:"sha" jsonschema:"Commit the failing code was built from"`
	TraceID      string `json:"traceId,omitempty" jsonschema:"Correlation id echoed in the result. Generated when empty"`
	OccurrenceID string `json:"occurrenceId,omitempty" jsonschema:"Id of the error occurrence, used for log correlation"`
}

// PositionArgs are the arguments of resolve_stack_trace_position.
type PositionArgs struct {
	Sha      string `json:"sha" jsonschema:"Commit the position refers to"`
	RepoID   string `json:"repoId" jsonschema:"Repository id or name, as returned by resolve_stack_trace"`
	FilePath string `json:"filePath" jsonschema:"Absolute path or path relative to the repository root"`
	Line     int    `json:"line" jsonschema:"1-based line number"`
	Column   int    `json:"column,omitempty" jsonschema:"1-based column. Omit when unknown"`
}

// RegisterTools adds every tool to the server.
func (s *MCPServer) RegisterTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "parse_stack_trace",
		Description: "Parse a raw stack trace into frames. Supports JavaScript, Ruby, PHP, Python, C#, Java and Go traces.",
	}, s.toolParseStackTrace)

	sdk.AddTool(s.server, &sdk.Tool{
		Name: "resolve_stack_trace",
		Description: "Map every frame of a production stack trace onto the current contents of the matching local work tree. " +
			"Frames are followed through the commits since sha and through unsaved editor buffers.",
	}, s.toolResolveStackTrace)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "resolve_stack_trace_position",
		Description: "Map one position in a file at commit sha onto the file's current contents.",
	}, s.toolResolveStackTracePosition)
}

func (s *MCPServer) toolParseStackTrace(ctx context.Context, req *sdk.CallToolRequest, args ParseArgs) (*sdk.CallToolResult, any, error) {
	if strings.TrimSpace(args.StackTrace) == "" {
		return errorResult(errors.New(errors.InvalidArgument, "stackTrace is required", nil)), nil, nil
	}
	return jsonResult(s.resolver.ParseStackTrace(ctx, args.StackTrace))
}

func (s *MCPServer) toolResolveStackTrace(ctx context.Context, req *sdk.CallToolRequest, args ResolveArgs) (*sdk.CallToolResult, any, error) {
	if strings.TrimSpace(args.StackTrace) == "" {
		return errorResult(errors.New(errors.InvalidArgument, "stackTrace is required", nil)), nil, nil
	}

	resp, err := s.resolver.ResolveStackTrace(ctx, resolver.ResolveRequest{
		StackTrace:   strings.Split(strings.ReplaceAll(args.StackTrace, "\r\n", "\n"), "\n"),
		RepoRemote:   args.RepoRemote,
		Sha:          args.Sha,
		TraceID:      args.TraceID,
		OccurrenceID: args.OccurrenceID,
		OnFrameResolved: func(index int, frame stacktrace.Frame) {
			s.logger.Debug("Frame resolved", map[string]interface{}{
				"index":    index,
				"resolved": frame.Error == nil,
			})
		},
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(resp)
}

func (s *MCPServer) toolResolveStackTracePosition(ctx context.Context, req *sdk.CallToolRequest, args PositionArgs) (*sdk.CallToolResult, any, error) {
	resp, err := s.resolver.ResolveStackTracePosition(ctx, resolver.PositionRequest{
		Sha:      args.Sha,
		RepoID:   args.RepoID,
		FilePath: args.FilePath,
		Line:     args.Line,
		Column:   args.Column,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(resp)
}

// jsonResult renders v as the single text content of a tool result.
func jsonResult(v interface{}) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult reports err to the model as a tool error, with the code and
// suggested fixes when err carries them.
func errorResult(err error) *sdk.CallToolResult {
	body := map[string]interface{}{
		"code":  string(errors.CodeOf(err)),
		"error": err.Error(),
	}
	if fixes := errors.GetSuggestedFixes(errors.CodeOf(err)); len(fixes) > 0 {
		body["suggestedFixes"] = fixes
	}
	data, _ := json.MarshalIndent(body, "", "  ")
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}
}
