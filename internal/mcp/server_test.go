package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"stackresolve/internal/errors"
	"stackresolve/internal/language"
	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

type fakeResolver struct {
	lastResolve  resolver.ResolveRequest
	lastPosition resolver.PositionRequest
	resolveErr   error
}

func (f *fakeResolver) ParseStackTrace(ctx context.Context, raw string) *stacktrace.ParsedStackTrace {
	file, line := "/srv/app/a.js", 3
	return &stacktrace.ParsedStackTrace{
		Language: language.JavaScript,
		Lines:    []stacktrace.Frame{{FileFullPath: &file, Line: &line}},
	}
}

func (f *fakeResolver) ResolveStackTrace(ctx context.Context, req resolver.ResolveRequest) (*resolver.ResolveResponse, error) {
	f.lastResolve = req
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &resolver.ResolveResponse{TraceID: "t-1", RepoID: "r-1"}, nil
}

func (f *fakeResolver) ResolveStackTracePosition(ctx context.Context, req resolver.PositionRequest) (*resolver.PositionResponse, error) {
	f.lastPosition = req
	line := req.Line + 2
	return &resolver.PositionResponse{Line: &line, Path: "/repo/" + req.FilePath}, nil
}

func connect(t *testing.T, r StackResolver) *sdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	srv := NewMCPServer("test", r, nil)
	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	ss, err := srv.Server().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *sdk.ClientSession, name string, args map[string]any) (*sdk.CallToolResult, string) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) failed: %v", name, err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return res, text.Text
}

func TestListTools(t *testing.T) {
	cs := connect(t, &fakeResolver{})

	res, err := cs.ListTools(context.Background(), &sdk.ListToolsParams{})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		if tool.InputSchema == nil {
			t.Errorf("tool %s has no input schema", tool.Name)
		}
	}
	sort.Strings(names)
	want := []string{"parse_stack_trace", "resolve_stack_trace", "resolve_stack_trace_position"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("tools = %v, want %v", names, want)
	}
}

func TestParseStackTraceTool(t *testing.T) {
	cs := connect(t, &fakeResolver{})

	res, text := callTool(t, cs, "parse_stack_trace", map[string]any{"stackTrace": "Error: x\n    at f (/srv/app/a.js:3:1)"})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var parsed stacktrace.ParsedStackTrace
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Language != language.JavaScript || len(parsed.Lines) != 1 {
		t.Errorf("parsed = %+v", parsed)
	}

	res, text = callTool(t, cs, "parse_stack_trace", map[string]any{"stackTrace": " "})
	if !res.IsError || !strings.Contains(text, string(errors.InvalidArgument)) {
		t.Errorf("expected invalid argument error, got %s", text)
	}
}

func TestResolveStackTraceTool(t *testing.T) {
	fr := &fakeResolver{}
	cs := connect(t, fr)

	res, text := callTool(t, cs, "resolve_stack_trace", map[string]any{
		"stackTrace": "Error: x\r\n    at f (/srv/app/a.js:3:1)",
		"repoRemote": "git@github.com:acme/shop.git",
		"sha":        "abc123",
	})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var resp resolver.ResolveResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RepoID != "r-1" {
		t.Errorf("RepoID = %q", resp.RepoID)
	}
	if len(fr.lastResolve.StackTrace) != 2 || fr.lastResolve.StackTrace[0] != "Error: x" {
		t.Errorf("StackTrace = %q", fr.lastResolve.StackTrace)
	}
	if fr.lastResolve.Sha != "abc123" || fr.lastResolve.OnFrameResolved == nil {
		t.Errorf("request = %+v", fr.lastResolve)
	}

	fr.resolveErr = errors.New(errors.Timeout, "cancelled", nil)
	res, text = callTool(t, cs, "resolve_stack_trace", map[string]any{
		"stackTrace": "x", "repoRemote": "r", "sha": "s",
	})
	if !res.IsError || !strings.Contains(text, string(errors.Timeout)) {
		t.Errorf("expected timeout tool error, got %s", text)
	}
}

func TestResolveStackTracePositionTool(t *testing.T) {
	fr := &fakeResolver{}
	cs := connect(t, fr)

	res, text := callTool(t, cs, "resolve_stack_trace_position", map[string]any{
		"sha": "abc", "repoId": "shop", "filePath": "src/a.go", "line": 7,
	})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var resp resolver.PositionResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Line == nil || *resp.Line != 9 || resp.Path != "/repo/src/a.go" {
		t.Errorf("resp = %+v", resp)
	}
	if fr.lastPosition.Column != 0 {
		t.Errorf("Column = %d, want 0 when omitted", fr.lastPosition.Column)
	}
}
